package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieSigner signs and verifies session cookie values. The cookie carries
// an HS256 token whose subject is the opaque session ID, so a tampered
// cookie fails verification and the request is treated as anonymous.
type CookieSigner struct {
	secretKey string
}

// NewCookieSigner creates a new CookieSigner
func NewCookieSigner(secretKey string) *CookieSigner {
	return &CookieSigner{secretKey: secretKey}
}

// Sign produces a signed cookie value referencing the given session ID
func (cs *CookieSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cs.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return tokenString, nil
}

// Parse verifies a cookie value and returns the session ID it references
func (cs *CookieSigner) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cs.secretKey), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session cookie")
	}

	return claims.Subject, nil
}
