package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/sessions"
)

const sessionCookieName = "fleet_session"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySessionID stores the opaque session identifier
	ContextKeySessionID ContextKey = "session_id"
	// ContextKeySession stores the loaded session record
	ContextKeySession ContextKey = "session"
)

// currentSession returns the session injected by RequireSession, or false
// when the route is not behind the auth gate.
func currentSession(r *http.Request) (string, sessions.Session, bool) {
	id, ok := r.Context().Value(ContextKeySessionID).(string)
	if !ok {
		return "", sessions.Session{}, false
	}
	session, ok := r.Context().Value(ContextKeySession).(sessions.Session)
	if !ok {
		return "", sessions.Session{}, false
	}
	return id, session, true
}

// ensureSession loads the browser's session, creating an anonymous one
// (and setting its cookie) when no usable session exists. Anonymous
// sessions exist to carry flash messages across the login redirects.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, sessions.Session, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		session, err := s.sessions.Get(r.Context(), cookie.Value)
		if err == nil {
			return cookie.Value, session, nil
		}
	}

	session := sessions.Session{}
	id, err := s.sessions.Create(r.Context(), session, s.config.GetSessionTTL())
	if err != nil {
		return "", sessions.Session{}, err
	}
	s.setSessionCookie(w, id, s.config.GetSessionTTL())
	return id, session, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.env == "PROD",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env == "PROD",
		SameSite: http.SameSiteLaxMode,
	})
}

// flashError stores a one-shot error message and redirects. The message
// survives exactly one page render.
func (s *Server) flashError(w http.ResponseWriter, r *http.Request, msg, target string) {
	s.flash(w, r, msg, "", target)
}

// flashSuccess stores a one-shot success message and redirects.
func (s *Server) flashSuccess(w http.ResponseWriter, r *http.Request, msg, target string) {
	s.flash(w, r, "", msg, target)
}

func (s *Server) flash(w http.ResponseWriter, r *http.Request, errorMsg, successMsg, target string) {
	id, session, err := s.ensureSession(w, r)
	if err != nil {
		log.Err(err).Msg("failed to ensure session for flash message")
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	session.Error = errorMsg
	session.Success = successMsg
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = s.config.GetSessionTTL()
	}
	if err := s.sessions.Upsert(r.Context(), id, session, ttl); err != nil {
		log.Err(err).Msg("failed to store flash message")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
