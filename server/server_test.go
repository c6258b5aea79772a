package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/metrorail/fleet-console/fleet"
	"github.com/metrorail/fleet-console/sessions"
	"github.com/metrorail/fleet-console/upstream"
)

// testConfig satisfies config.Config without touching the environment.
type testConfig struct{}

func (testConfig) GetPort() string                   { return ":0" }
func (testConfig) GetAppName() string                { return "Fleet Console" }
func (testConfig) GetEnv() string                    { return "TEST" }
func (testConfig) GetUpstreamBaseURL() string        { return "http://upstream" }
func (testConfig) GetUpstreamTimeout() time.Duration { return time.Second }
func (testConfig) GetSessionTTL() time.Duration      { return 24 * time.Hour }
func (testConfig) GetRememberTTL() time.Duration     { return 30 * 24 * time.Hour }
func (testConfig) GetRedisAddr() string              { return "" }
func (testConfig) GetSessionSecret() []byte          { return []byte("0123456789abcdef0123456789abcdef") }
func (testConfig) GetRateLimitRPS() int              { return 1000 }
func (testConfig) GetRateLimitBurst() int            { return 1000 }

// stubAuth scripts the upstream auth endpoints and counts calls.
type stubAuth struct {
	tokens    upstream.TokenPair
	tokenErr  error
	user      json.RawMessage
	userErr   error
	createErr error
	resetErr  error

	createTokenCalls int
	createUserCalls  int
	resetCalls       int
}

func (s *stubAuth) CreateToken(context.Context, string, string) (upstream.TokenPair, error) {
	s.createTokenCalls++
	return s.tokens, s.tokenErr
}

func (s *stubAuth) CurrentUser(context.Context, string) (json.RawMessage, error) {
	return s.user, s.userErr
}

func (s *stubAuth) CreateUser(context.Context, string, string, string) error {
	s.createUserCalls++
	return s.createErr
}

func (s *stubAuth) ResetPassword(context.Context, string) error {
	s.resetCalls++
	return s.resetErr
}

// stubFleetAPI serves canned fleet data, or fails every source at once.
type stubFleetAPI struct {
	fail bool
}

func (s *stubFleetAPI) FitnessCertificates(context.Context) ([]upstream.FitnessCertificate, error) {
	if s.fail {
		return nil, fmt.Errorf("down")
	}
	return []upstream.FitnessCertificate{{TrainID: "KRISHNA", Signal: true, Braking: true}}, nil
}

func (s *stubFleetAPI) BrandingContracts(context.Context) ([]upstream.BrandingContract, error) {
	if s.fail {
		return nil, fmt.Errorf("down")
	}
	return []upstream.BrandingContract{{TrainID: "KRISHNA", BrandingFirm: "Acme"}}, nil
}

func (s *stubFleetAPI) Mileage(context.Context) ([]upstream.MileageRecord, error) {
	if s.fail {
		return nil, fmt.Errorf("down")
	}
	return []upstream.MileageRecord{{TrainID: "KRISHNA", Mileage: 1000}}, nil
}

func (s *stubFleetAPI) JobCards(context.Context) ([]upstream.JobCard, error) {
	if s.fail {
		return nil, fmt.Errorf("down")
	}
	return []upstream.JobCard{{ID: 1, Train: "KRISHNA", Status: "OPEN"}}, nil
}

func (s *stubFleetAPI) Predictions(context.Context) (upstream.InductionPlan, error) {
	if s.fail {
		return nil, fmt.Errorf("down")
	}
	return upstream.InductionPlan{{Train: "KRISHNA", Action: upstream.ActionService}}, nil
}

func newTestServer(t *testing.T, auth *stubAuth, api *stubFleetAPI) (*Server, *sessions.InMemoryRepo) {
	t.Helper()
	repo := sessions.NewInMemoryRepo()
	srv, err := New(testConfig{}, auth, fleet.NewService(api), repo)
	require.NoError(t, err)
	return srv, repo
}

// doRequest routes through the mux directly, below the CSRF wrapper, so
// form posts do not need a token exchange first.
func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:50000"
	return req
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginSubmission(t *testing.T) {
	t.Run("successful login stores tokens and redirects to dashboard", func(t *testing.T) {
		auth := &stubAuth{
			tokens: upstream.TokenPair{Access: "access-token", Refresh: "refresh-token"},
			user:   json.RawMessage(`{"email":"ops@example.com","name":"Ops"}`),
		}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteLogin, url.Values{
			"email":    {"ops@example.com"},
			"password": {"Secret1pass"},
		}))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteDashboard, rec.Header().Get("Location"))

		cookie := sessionCookieFrom(t, rec)
		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.Equal(t, "access-token", session.AccessToken)
		require.Equal(t, "refresh-token", session.RefreshToken)
		require.JSONEq(t, `{"email":"ops@example.com","name":"Ops"}`, string(session.User))
	})

	t.Run("remember me extends the session", func(t *testing.T) {
		auth := &stubAuth{
			tokens: upstream.TokenPair{Access: "access-token", Refresh: "refresh-token"},
			user:   json.RawMessage(`{}`),
		}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteLogin, url.Values{
			"email":    {"ops@example.com"},
			"password": {"Secret1pass"},
			"remember": {"on"},
		}))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		cookie := sessionCookieFrom(t, rec)
		require.Greater(t, cookie.MaxAge, int((29*24*time.Hour).Seconds()))

		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.True(t, session.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))
	})

	t.Run("rejected credentials leave no token and flash a generic message", func(t *testing.T) {
		auth := &stubAuth{tokenErr: fmt.Errorf("401 from upstream")}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteLogin, url.Values{
			"email":    {"ops@example.com"},
			"password": {"wrong"},
		}))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))

		cookie := sessionCookieFrom(t, rec)
		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.False(t, session.Authenticated())
		require.Equal(t, "Invalid email or password", session.Error)
		require.NotContains(t, session.Error, "401")
	})

	t.Run("user fetch failure also fails the login", func(t *testing.T) {
		auth := &stubAuth{
			tokens:  upstream.TokenPair{Access: "access-token", Refresh: "refresh-token"},
			userErr: fmt.Errorf("me endpoint down"),
		}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteLogin, url.Values{
			"email":    {"ops@example.com"},
			"password": {"Secret1pass"},
		}))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))

		cookie := sessionCookieFrom(t, rec)
		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.False(t, session.Authenticated())
	})
}

func TestLoginPageFlash(t *testing.T) {
	auth := &stubAuth{tokenErr: fmt.Errorf("rejected")}
	srv, _ := newTestServer(t, auth, &stubFleetAPI{})

	rec := doRequest(srv, formRequest(RouteLogin, url.Values{
		"email":    {"ops@example.com"},
		"password": {"wrong"},
	}))
	cookie := sessionCookieFrom(t, rec)

	get := httptest.NewRequest(http.MethodGet, RouteLogin, nil)
	get.RemoteAddr = "10.0.0.1:50000"
	get.AddCookie(cookie)
	rec = doRequest(srv, get)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid email or password")

	// The flash is one-shot: a reload renders without it.
	get = httptest.NewRequest(http.MethodGet, RouteLogin, nil)
	get.RemoteAddr = "10.0.0.1:50000"
	get.AddCookie(cookie)
	rec = doRequest(srv, get)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Invalid email or password")
}

func TestSignupSubmission(t *testing.T) {
	t.Run("weak password never reaches the upstream", func(t *testing.T) {
		auth := &stubAuth{}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteSignup, url.Values{
			"userid":   {"driver42"},
			"email":    {"new@example.com"},
			"password": {"weak"},
		}))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteSignup, rec.Header().Get("Location"))
		require.Zero(t, auth.createUserCalls)

		cookie := sessionCookieFrom(t, rec)
		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.Contains(t, session.Error, "at least 8 characters")
	})

	t.Run("successful signup redirects to login with a success flash", func(t *testing.T) {
		auth := &stubAuth{}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		rec := doRequest(srv, formRequest(RouteSignup, url.Values{
			"userid":   {"driver42"},
			"email":    {"new@example.com"},
			"password": {"Secret1pass"},
		}))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))
		require.Equal(t, 1, auth.createUserCalls)

		cookie := sessionCookieFrom(t, rec)
		session, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.Equal(t, signupSuccess, session.Success)
	})

	t.Run("field errors map to canned messages by precedence", func(t *testing.T) {
		cases := []struct {
			name   string
			fields map[string][]string
			want   string
		}{
			{"email wins over the rest", map[string][]string{
				"email":    {"taken"},
				"name":     {"taken"},
				"password": {"weak"},
			}, signupEmailTaken},
			{"name wins over password", map[string][]string{
				"name":     {"taken"},
				"password": {"weak"},
			}, signupNameRejected},
			{"password alone", map[string][]string{
				"password": {"weak"},
			}, signupPasswordWeak},
			{"unknown fields fall back", map[string][]string{
				"re_password": {"mismatch"},
			}, signupGenericFailure},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				auth := &stubAuth{createErr: fmt.Errorf("user create: %w", &upstream.RegistrationError{
					Status: http.StatusBadRequest,
					Fields: tc.fields,
				})}
				srv, repo := newTestServer(t, auth, &stubFleetAPI{})

				rec := doRequest(srv, formRequest(RouteSignup, url.Values{
					"userid":   {"driver42"},
					"email":    {"new@example.com"},
					"password": {"Secret1pass"},
				}))

				require.Equal(t, http.StatusSeeOther, rec.Code)
				require.Equal(t, RouteSignup, rec.Header().Get("Location"))

				cookie := sessionCookieFrom(t, rec)
				session, err := repo.Get(context.Background(), cookie.Value)
				require.NoError(t, err)
				require.Equal(t, tc.want, session.Error)
			})
		}
	})
}

func TestForgotPassword(t *testing.T) {
	t.Run("neutral message on success and failure alike", func(t *testing.T) {
		for _, resetErr := range []error{nil, fmt.Errorf("upstream down")} {
			auth := &stubAuth{resetErr: resetErr}
			srv, repo := newTestServer(t, auth, &stubFleetAPI{})

			rec := doRequest(srv, formRequest(RouteForgotPassword, url.Values{
				"email": {"ops@example.com"},
			}))

			require.Equal(t, http.StatusSeeOther, rec.Code)
			require.Equal(t, RouteLogin, rec.Header().Get("Location"))
			require.Equal(t, 1, auth.resetCalls)

			cookie := sessionCookieFrom(t, rec)
			session, err := repo.Get(context.Background(), cookie.Value)
			require.NoError(t, err)
			require.Contains(t, session.Success, "If that email is registered")
			require.Empty(t, session.Error)
		}
	})
}

// failingDeleteRepo wraps a repo so Delete always errors.
type failingDeleteRepo struct {
	sessions.Repo
}

func (failingDeleteRepo) Delete(context.Context, string) error {
	return fmt.Errorf("store unavailable")
}

func TestLogout(t *testing.T) {
	t.Run("deletes the session and clears the cookie", func(t *testing.T) {
		auth := &stubAuth{}
		srv, repo := newTestServer(t, auth, &stubFleetAPI{})

		id, err := repo.Create(context.Background(), sessions.Session{AccessToken: "access"}, time.Hour)
		require.NoError(t, err)

		req := formRequest(RouteLogout, url.Values{})
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
		rec := doRequest(srv, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))

		_, err = repo.Get(context.Background(), id)
		require.Error(t, err)

		cookie := sessionCookieFrom(t, rec)
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	})

	t.Run("still clears the cookie when destruction fails", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		srv, err := New(testConfig{}, &stubAuth{}, fleet.NewService(&stubFleetAPI{}), failingDeleteRepo{Repo: repo})
		require.NoError(t, err)

		id, err := repo.Create(context.Background(), sessions.Session{AccessToken: "access"}, time.Hour)
		require.NoError(t, err)

		req := formRequest(RouteLogout, url.Values{})
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
		rec := doRequest(srv, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))

		cookie := sessionCookieFrom(t, rec)
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	})
}

func TestAuthGate(t *testing.T) {
	srv, repo := newTestServer(t, &stubAuth{}, &stubFleetAPI{})

	authedCookie := func(t *testing.T) *http.Cookie {
		id, err := repo.Create(context.Background(), sessions.Session{
			AccessToken: "access",
			User:        json.RawMessage(`{"name":"Ops"}`),
		}, time.Hour)
		require.NoError(t, err)
		return &http.Cookie{Name: sessionCookieName, Value: id}
	}

	t.Run("every fleet route redirects without a session", func(t *testing.T) {
		for route := range srv.protectedPages() {
			req := httptest.NewRequest(http.MethodGet, route, nil)
			req.RemoteAddr = "10.0.0.1:50000"
			rec := doRequest(srv, req)
			require.Equal(t, http.StatusSeeOther, rec.Code, route)
			require.Equal(t, RouteLogin, rec.Header().Get("Location"), route)
		}
	})

	t.Run("anonymous session is not enough", func(t *testing.T) {
		id, err := repo.Create(context.Background(), sessions.Session{}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, RouteDashboard, nil)
		req.RemoteAddr = "10.0.0.1:50000"
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
		rec := doRequest(srv, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, RouteLogin, rec.Header().Get("Location"))
	})

	t.Run("authenticated session renders every fleet route", func(t *testing.T) {
		cookie := authedCookie(t)
		for route := range srv.protectedPages() {
			req := httptest.NewRequest(http.MethodGet, route, nil)
			req.RemoteAddr = "10.0.0.1:50000"
			req.AddCookie(cookie)
			rec := doRequest(srv, req)
			require.Equal(t, http.StatusOK, rec.Code, route)
		}
	})
}

func TestDashboardRendersUnderFailure(t *testing.T) {
	srv, repo := newTestServer(t, &stubAuth{}, &stubFleetAPI{fail: true})

	id, err := repo.Create(context.Background(), sessions.Session{
		AccessToken: "access",
		User:        json.RawMessage(`{"name":"Ops"}`),
	}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, RouteDashboard, nil)
	req.RemoteAddr = "10.0.0.1:50000"
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	rec := doRequest(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No certificate data available")
	require.Contains(t, rec.Body.String(), "No mileage data available")
}

func TestTrainsPage(t *testing.T) {
	srv, repo := newTestServer(t, &stubAuth{}, &stubFleetAPI{})

	id, err := repo.Create(context.Background(), sessions.Session{
		AccessToken: "access",
		User:        json.RawMessage(`{"name":"Ops"}`),
	}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, RouteTrains, nil)
	req.RemoteAddr = "10.0.0.1:50000"
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	rec := doRequest(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "KRISHNA")
	require.Contains(t, rec.Body.String(), "selected")
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Secret1pass", ""},
		{"too short", "Ab1", "at least 8 characters"},
		{"no uppercase", "secret1pass", "uppercase"},
		{"no lowercase", "SECRET1PASS", "lowercase"},
		{"no number", "Secretpass", "number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
