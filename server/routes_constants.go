package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteLogout         = "/logout"
	RouteForgotPassword = "/forgot-password"

	// Fleet Routes
	RouteDashboard   = "/dashboard"
	RouteTrains      = "/trains"
	RouteReports     = "/reports"
	RouteSettings    = "/settings"
	RouteService     = "/service"
	RouteStandby     = "/standby"
	RouteMaintenance = "/maintenance"
	RouteAlerts      = "/alerts"
	RouteSchedule    = "/schedule"
	RouteStaff       = "/staff"
	RouteFitness     = "/fitness"

	// Operational Routes
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)
