package server

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/internal/errors"
	"github.com/metrorail/fleet-console/upstream"
)

// Canned signup failure messages. Raw upstream error bodies never reach
// the browser.
const (
	signupEmailTaken     = "An account with this email already exists"
	signupNameRejected   = "That user ID is not available"
	signupPasswordWeak   = "That password was rejected, please choose a stronger one"
	signupGenericFailure = "Could not create the account, please try again"
	signupSuccess        = "Account created, you can now sign in"
)

// SignupPageData contains data for rendering the signup page
type SignupPageData struct {
	AppName   string
	Error     string
	Success   string
	CSRFField template.HTML
}

// SignupPageHandler displays the signup page (GET /signup)
func (s *Server) SignupPageHandler() http.HandlerFunc {
	signupTmpl, err := ParseTemplate("signup.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse signup template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, _, err := s.ensureSession(w, r)
		if err != nil {
			log.Err(err).Msg("Failed to establish session for signup page")
			http.Error(w, "Failed to render signup page", http.StatusInternalServerError)
			return
		}

		errorMsg, successMsg, err := s.sessions.TakeFlash(r.Context(), id)
		if err != nil {
			log.Err(err).Msg("Failed to read flash messages")
		}

		renderTemplate(w, signupTmpl, SignupPageData{
			AppName:   s.config.GetAppName(),
			Error:     errorMsg,
			Success:   successMsg,
			CSRFField: csrf.TemplateField(r),
		})
	}
}

// SignupSubmissionHandler processes the signup form (POST /signup). The
// password policy is checked locally first so weak passwords never reach
// the upstream at all.
func (s *Server) SignupSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		userID := r.FormValue("userid")
		email := r.FormValue("email")
		password := r.FormValue("password")

		if userID == "" || email == "" || password == "" {
			s.flashError(w, r, "All fields are required", RouteSignup)
			return
		}

		if err := ValidatePasswordStrength(password); err != nil {
			s.flashError(w, r, err.Error(), RouteSignup)
			return
		}

		if err := s.auth.CreateUser(r.Context(), email, userID, password); err != nil {
			log.Debug().Err(err).Msg("Signup rejected")
			s.flashError(w, r, signupErrorMessage(err), RouteSignup)
			return
		}

		s.flashSuccess(w, r, signupSuccess, RouteLogin)
	}
}

// signupErrorMessage maps an upstream registration failure to a canned
// message. Field precedence is email, then name, then password.
func signupErrorMessage(err error) string {
	var regErr *upstream.RegistrationError
	if !errors.As(err, &regErr) {
		return signupGenericFailure
	}
	switch {
	case regErr.Field("email") != "":
		return signupEmailTaken
	case regErr.Field("name") != "":
		return signupNameRejected
	case regErr.Field("password") != "":
		return signupPasswordWeak
	default:
		return signupGenericFailure
	}
}

// ForgotPasswordHandler asks the upstream to send a reset email (POST
// /forgot-password). The outcome message is neutral either way so the
// form cannot be used to probe which addresses are registered.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	const neutralMessage = "If that email is registered, a reset link has been sent"

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		if email == "" {
			s.flashError(w, r, "Email is required", RouteLogin)
			return
		}

		if err := s.auth.ResetPassword(r.Context(), email); err != nil {
			log.Err(err).Msg("Password reset request failed")
		}
		s.flashSuccess(w, r, neutralMessage, RouteLogin)
	}
}
