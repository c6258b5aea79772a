package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metrorail/fleet-console/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo. Expired sessions are
// evicted lazily on read.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowFunc  func() time.Time // injectable clock for testing
}

// NewInMemoryRepo creates a new in-memory session repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
		nowFunc:  time.Now,
	}
}

func (r *InMemoryRepo) Create(_ context.Context, session Session, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	now := r.nowFunc()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = session
	return id, nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	if r.nowFunc().After(session.ExpiresAt) {
		delete(r.sessions, id)
		return Session{}, errors.ErrSessionNotFound
	}
	return session, nil
}

func (r *InMemoryRepo) Upsert(_ context.Context, id string, session Session, ttl time.Duration) error {
	now := r.nowFunc()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ExpiresAt = now.Add(ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = session
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// TakeFlash reads and clears both flash messages under a single lock.
func (r *InMemoryRepo) TakeFlash(_ context.Context, id string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || r.nowFunc().After(session.ExpiresAt) {
		delete(r.sessions, id)
		return "", "", errors.ErrSessionNotFound
	}

	errorMsg, successMsg := session.Error, session.Success
	session.Error, session.Success = "", ""
	r.sessions[id] = session
	return errorMsg, successMsg, nil
}
