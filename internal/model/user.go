package model

import "time"

// User represents a registered member of the site
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"` // email address, unique
	PasswordHash string    `json:"-"`        // Do not expose password hash in JSON responses
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}
