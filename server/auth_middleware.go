package server

import (
	"context"
	"net/http"
)

// RequireSession is middleware for the server-rendered fleet routes. It
// loads the browser's session and requires an upstream access token; any
// other state redirects to the login page. Tokens are opaque here and
// never validated locally.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}

			session, err := s.sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				s.clearSessionCookie(w)
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}

			if !session.Authenticated() {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySessionID, cookie.Value)
			ctx = context.WithValue(ctx, ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}
