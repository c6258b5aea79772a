package server

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/sessions"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName   string
	Error     string
	Success   string
	CSRFField template.HTML
}

// LoginPageHandler displays the login page (GET /login). Flash messages
// are consumed here: they render once and are gone.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse login template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, _, err := s.ensureSession(w, r)
		if err != nil {
			log.Err(err).Msg("Failed to establish session for login page")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
			return
		}

		errorMsg, successMsg, err := s.sessions.TakeFlash(r.Context(), id)
		if err != nil {
			log.Err(err).Msg("Failed to read flash messages")
		}

		renderTemplate(w, loginTmpl, LoginPageData{
			AppName:   s.config.GetAppName(),
			Error:     errorMsg,
			Success:   successMsg,
			CSRFField: csrf.TemplateField(r),
		})
	}
}

// LoginSubmissionHandler processes the login form (POST /login). Any
// failure, local or upstream, surfaces as the same generic message so
// nothing about the account leaks.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	const genericLoginError = "Invalid email or password"

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		password := r.FormValue("password")
		remember := r.FormValue("remember") != ""

		if email == "" || password == "" {
			s.flashError(w, r, genericLoginError, RouteLogin)
			return
		}

		tokens, err := s.auth.CreateToken(r.Context(), email, password)
		if err != nil {
			log.Debug().Err(err).Msg("Login rejected")
			s.flashError(w, r, genericLoginError, RouteLogin)
			return
		}

		user, err := s.auth.CurrentUser(r.Context(), tokens.Access)
		if err != nil {
			log.Err(err).Msg("Failed to fetch user record after login")
			s.flashError(w, r, genericLoginError, RouteLogin)
			return
		}

		// Drop the anonymous session so the old identifier cannot carry
		// over into the authenticated one.
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
				log.Debug().Err(err).Msg("Failed to delete pre-login session")
			}
		}

		ttl := s.config.GetSessionTTL()
		if remember {
			ttl = s.config.GetRememberTTL()
		}

		session := sessions.Session{
			AccessToken:  tokens.Access,
			RefreshToken: tokens.Refresh,
			User:         user,
			CreatedAt:    time.Now(),
			ExpiresAt:    time.Now().Add(ttl),
		}
		id, err := s.sessions.Create(r.Context(), session, ttl)
		if err != nil {
			log.Err(err).Msg("Failed to create authenticated session")
			s.flashError(w, r, genericLoginError, RouteLogin)
			return
		}

		s.setSessionCookie(w, id, ttl)
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}

// LogoutHandler destroys the session (POST /logout). Destruction errors
// are logged but never block the redirect: the cookie is cleared
// regardless, so the browser never stays in an authenticated-looking
// state.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
				log.Err(err).Msg("Failed to delete session on logout")
			}
		}

		s.clearSessionCookie(w)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}
