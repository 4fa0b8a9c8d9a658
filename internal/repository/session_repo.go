package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership_site/internal/model"

	"github.com/jackc/pgx/v5"
)

// SessionRepository defines operations for durable session state
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session row
func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	sql := `INSERT INTO sessions (id, authenticated, user_name, is_admin, created_at, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, sql, session.ID, session.Authenticated, session.UserName, session.IsAdmin, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID retrieves a session row by its opaque identifier. Expiry is not
// checked here; the service layer owns that decision.
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	sql := `SELECT id, authenticated, user_name, is_admin, created_at, expires_at FROM sessions WHERE id = $1`
	err := r.db.QueryRow(ctx, sql, id).Scan(&session.ID, &session.Authenticated, &session.UserName, &session.IsAdmin, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Session not found
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Delete removes a session row; deleting an absent session is a no-op
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	sql := `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.Exec(ctx, sql, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Extend resets the expiry of an existing session
func (r *sessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	sql := `UPDATE sessions SET expires_at = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, sql, id, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes every session whose expiry has passed
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sql := `DELETE FROM sessions WHERE expires_at <= $1`
	tag, err := r.db.Exec(ctx, sql, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
