package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"membership_site/internal/model"
	"membership_site/internal/repository"

	"github.com/google/uuid"
)

// SessionService owns the lifecycle of server-side sessions. Expiry is
// fixed from the last write: Get never slides it, Extend resets it.
type SessionService interface {
	Create(ctx context.Context, grant *SessionGrant) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Destroy(ctx context.Context, id string) error
	Extend(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
	TTL() time.Duration
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	ttl         time.Duration
}

// NewSessionService creates a new SessionService with a fixed TTL
func NewSessionService(sessionRepo repository.SessionRepository, ttl time.Duration) SessionService {
	return &sessionService{sessionRepo: sessionRepo, ttl: ttl}
}

// Create persists a new session for the given grant under a fresh opaque ID
func (s *sessionService) Create(ctx context.Context, grant *SessionGrant) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		ID:            uuid.NewString(),
		Authenticated: grant.Authenticated,
		UserName:      grant.Name,
		IsAdmin:       grant.Admin,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

// Get returns the session for the given ID, or nil when it is absent or
// expired. Expired rows are deleted lazily on lookup.
func (s *sessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(time.Now()) {
		if err := s.sessionRepo.Delete(ctx, id); err != nil {
			log.Printf("Failed to delete expired session %s: %v", id, err)
		}
		return nil, nil
	}
	return session, nil
}

// Destroy removes the session; absent sessions are a no-op
func (s *sessionService) Destroy(ctx context.Context, id string) error {
	return s.sessionRepo.Delete(ctx, id)
}

// Extend resets the session expiry to a full TTL from now
func (s *sessionService) Extend(ctx context.Context, id string) error {
	return s.sessionRepo.Extend(ctx, id, time.Now().Add(s.ttl))
}

// PurgeExpired removes every expired session row
func (s *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, time.Now())
}

// TTL returns the fixed session lifetime
func (s *sessionService) TTL() time.Duration {
	return s.ttl
}
