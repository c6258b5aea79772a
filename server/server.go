package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/fleet"
	"github.com/metrorail/fleet-console/internal/config"
	"github.com/metrorail/fleet-console/sessions"
	"github.com/metrorail/fleet-console/upstream"
)

// AuthAPI is the slice of the upstream client the auth handlers need.
type AuthAPI interface {
	CreateToken(ctx context.Context, email, password string) (upstream.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (json.RawMessage, error)
	CreateUser(ctx context.Context, email, name, password string) error
	ResetPassword(ctx context.Context, email string) error
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	handler    http.Handler
	routes     []string
	fileServer http.Handler
	config     config.Config
	auth       AuthAPI
	fleet      *fleet.Service
	sessions   sessions.Repo
	metrics    *requestMetrics
	limiter    *visitorLimiter
}

func New(cfg config.Config, auth AuthAPI, fleetService *fleet.Service, sessionRepo sessions.Repo) (*Server, error) {
	if auth == nil || fleetService == nil || sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] missing dependency")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     auth,
		fleet:    fleetService,
		sessions: sessionRepo,
		metrics:  newRequestMetrics(),
		limiter:  newVisitorLimiter(cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst()),
	}
	s.fileServer = FileServerHandler()

	s.initRoutes()
	s.logRoutes()

	// CSRF protection wraps the whole mux so every POST form is covered.
	protect := csrf.Protect(
		cfg.GetSessionSecret(),
		csrf.Secure(s.env == "PROD"),
		csrf.Path("/"),
	)
	s.handler = protect(s.mux)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
