package sessions

import (
	"context"
	"encoding/json"
	"time"
)

// Session is the per-browser state kept between requests. Tokens and the
// user record come verbatim from the upstream API; Error and Success are
// one-shot flash messages consumed by the next rendered page.
type Session struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
	Error        string          `json:"error,omitempty"`
	Success      string          `json:"success,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Authenticated reports whether the session holds an access token.
// No local token validation is performed, the upstream rejects stale
// tokens on the next data call.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Repo is a key-value session store with TTL.
type Repo interface {
	// Create stores a new session with the given TTL and returns its ID.
	Create(ctx context.Context, session Session, ttl time.Duration) (string, error)

	// Get retrieves a session by ID. Expired or unknown sessions return
	// errors.ErrSessionNotFound.
	Get(ctx context.Context, id string) (Session, error)

	// Upsert replaces the session stored under id and resets its TTL.
	Upsert(ctx context.Context, id string, session Session, ttl time.Duration) error

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error

	// TakeFlash reads and clears both flash messages in one operation, so
	// that concurrent requests for the same session cannot observe a
	// message twice.
	TakeFlash(ctx context.Context, id string) (errorMsg, successMsg string, err error)
}
