package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleware()...))

	// LOGIN / SIGNUP
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupPageHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupSubmissionHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.HTMLMiddleware()...))

	// Fleet routes all sit behind the session gate. The table is the
	// single place that decides which pages are protected.
	for route, handler := range s.protectedPages() {
		s.RegisterRouteHandler("GET "+route, ChainMiddleware(handler, s.HTMLMiddleware(s.RequireSession())...))
	}

	// Operational routes
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.handler())

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleware()...))
}

// protectedPages maps every authenticated route to its page handler.
func (s *Server) protectedPages() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		RouteDashboard:   s.DashboardHandler(),
		RouteTrains:      s.TrainsHandler(),
		RouteMaintenance: s.MaintenanceHandler(),
		RouteSchedule:    s.ScheduleHandler(),
		RouteFitness:     s.FitnessHandler(),
		RouteReports:     s.StaticPageHandler("reports.html"),
		RouteSettings:    s.StaticPageHandler("settings.html"),
		RouteService:     s.StaticPageHandler("service.html"),
		RouteStandby:     s.StaticPageHandler("standby.html"),
		RouteAlerts:      s.StaticPageHandler("alerts.html"),
		RouteStaff:       s.StaticPageHandler("staff.html"),
	}
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s %s%s%s", displayMethod, path, Red, error, ResetColor)
}
