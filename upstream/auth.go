package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/metrorail/fleet-console/internal/errors"
)

const (
	pathTokenCreate   = "/auth/jwt/create/"
	pathCurrentUser   = "/auth/users/me/"
	pathUserCreate    = "/auth/users/"
	pathResetPassword = "/auth/users/reset_password/"
)

// TokenPair holds the bearer credentials issued by the upstream.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateToken exchanges credentials for an access/refresh token pair.
// Invalid credentials map to errors.ErrInvalidCredentials.
func (c *Client) CreateToken(ctx context.Context, email, password string) (TokenPair, error) {
	payload := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, pathTokenCreate, payload, "")
	if err != nil {
		return TokenPair{}, err
	}

	if resp.status == http.StatusUnauthorized || resp.status == http.StatusBadRequest {
		return TokenPair{}, fmt.Errorf("token create rejected (status %d): %w", resp.status, errors.ErrInvalidCredentials)
	}
	if resp.status != http.StatusOK {
		return TokenPair{}, fmt.Errorf("token create: %w", &StatusError{Status: resp.status, Body: resp.body})
	}

	var tokens TokenPair
	if err := json.Unmarshal(resp.body, &tokens); err != nil {
		return TokenPair{}, fmt.Errorf("decode token response: %w", err)
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return TokenPair{}, fmt.Errorf("token response missing access or refresh token: %w", errors.ErrInvalidCredentials)
	}

	c.logTokenExpiry(tokens.Access)
	return tokens, nil
}

// logTokenExpiry decodes the unverified exp claim for operational
// diagnosis only. The token is never validated locally.
func (c *Client) logTokenExpiry(access string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		c.log.Debug().Err(err).Msg("access token is not a parseable JWT")
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	c.log.Debug().Time("expires_at", exp.Time).Msg("access token issued")
}

// CurrentUser fetches the user record for the given access token. The
// record is returned verbatim and never validated locally.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, pathCurrentUser, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		return nil, fmt.Errorf("current user rejected: %w", errors.ErrUnauthorized)
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("current user: %w", &StatusError{Status: resp.status, Body: resp.body})
	}
	return json.RawMessage(resp.body), nil
}

// CreateUser registers a new account. Rejections with recognizable field
// errors return a *RegistrationError.
func (c *Client) CreateUser(ctx context.Context, email, name, password string) error {
	payload := map[string]string{
		"email":       email,
		"name":        name,
		"password":    password,
		"re_password": password,
	}
	resp, err := c.do(ctx, http.MethodPost, pathUserCreate, payload, "")
	if err != nil {
		return err
	}
	if resp.status == http.StatusCreated || resp.status == http.StatusOK {
		return nil
	}
	return fmt.Errorf("user create: %w", parseRegistrationError(resp.status, resp.body))
}

// ResetPassword asks the upstream to send a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	resp, err := c.do(ctx, http.MethodPost, pathResetPassword, payload, "")
	if err != nil {
		return err
	}
	if resp.status >= 300 {
		return fmt.Errorf("reset password: %w", &StatusError{Status: resp.status, Body: resp.body})
	}
	return nil
}
