package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// response is what passes through the circuit breaker: the status code and
// the fully-read body, so the breaker never holds open connections.
type response struct {
	status int
	body   []byte
}

// Client issues HTTP calls against the upstream fleet API. Every call has a
// bounded timeout and no retries; a circuit breaker sheds load from an
// upstream that is failing outright.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
	log        zerolog.Logger
}

// NewClient creates a client for the given base URL. timeout bounds each
// individual call, including connect and body read.
func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	logger := log.With().Str("component", "upstream").Logger()

	settings := gobreaker.Settings{
		Name:    "upstream-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[response](settings),
		log:     logger,
	}
}

// do performs a single request through the circuit breaker. payload (if
// non-nil) is JSON-encoded; bearer (if non-empty) is sent as the
// Authorization credential. Network failures and 5xx responses count as
// breaker failures; 4xx responses pass through to the caller.
func (c *Client) do(ctx context.Context, method, path string, payload any, bearer string) (response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return response{}, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.breaker.Execute(func() (response, error) {
		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return response{}, err
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return response{}, fmt.Errorf("read response body: %w", err)
		}
		if httpResp.StatusCode >= 500 {
			return response{}, &StatusError{Status: httpResp.StatusCode, Body: respBody}
		}
		return response{status: httpResp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return fmt.Errorf("GET %s: %w", path, &StatusError{Status: resp.status, Body: resp.body})
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode GET %s response: %w", path, err)
	}
	return nil
}
