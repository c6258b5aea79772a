package server

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/fleet"
	"github.com/metrorail/fleet-console/upstream"
)

// userRecord decodes the session's stored user blob for template use. The
// blob is upstream-owned and rendered as-is; a corrupt blob degrades to
// an empty record rather than failing the page.
func userRecord(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var user map[string]any
	if err := json.Unmarshal(raw, &user); err != nil {
		log.Debug().Err(err).Msg("Failed to decode session user record")
		return map[string]any{}
	}
	return user
}

// DashboardPageData contains data for rendering the dashboard page
type DashboardPageData struct {
	AppName   string
	User      map[string]any
	CSRFField template.HTML
	Data      fleet.DashboardData
}

// DashboardHandler renders the dashboard (GET /dashboard). The aggregate
// is fail-soft, so the page renders whatever combination of sources
// succeeded.
func (s *Server) DashboardHandler() http.HandlerFunc {
	dashboardTmpl, err := ParseTemplate("dashboard.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse dashboard template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, dashboardTmpl, DashboardPageData{
			AppName:   s.config.GetAppName(),
			User:      userRecord(session.User),
			CSRFField: csrf.TemplateField(r),
			Data:      s.fleet.Dashboard(r.Context()),
		})
	}
}

// TrainsPageData contains data for rendering the trains page
type TrainsPageData struct {
	AppName   string
	User      map[string]any
	CSRFField template.HTML
	View      fleet.TrainsView
}

// TrainsHandler renders the fleet overview (GET /trains)
func (s *Server) TrainsHandler() http.HandlerFunc {
	trainsTmpl, err := ParseTemplate("trains.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse trains template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, trainsTmpl, TrainsPageData{
			AppName:   s.config.GetAppName(),
			User:      userRecord(session.User),
			CSRFField: csrf.TemplateField(r),
			View:      s.fleet.Trains(r.Context()),
		})
	}
}

// MaintenancePageData contains data for rendering the maintenance page
type MaintenancePageData struct {
	AppName   string
	User      map[string]any
	CSRFField template.HTML
	JobCards  []upstream.JobCard
}

// MaintenanceHandler renders the open job cards (GET /maintenance)
func (s *Server) MaintenanceHandler() http.HandlerFunc {
	maintenanceTmpl, err := ParseTemplate("maintenance.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse maintenance template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, maintenanceTmpl, MaintenancePageData{
			AppName:   s.config.GetAppName(),
			User:      userRecord(session.User),
			CSRFField: csrf.TemplateField(r),
			JobCards:  s.fleet.JobCards(r.Context()),
		})
	}
}

// SchedulePageData contains data for rendering the schedule page
type SchedulePageData struct {
	AppName   string
	User      map[string]any
	CSRFField template.HTML
	Plan      upstream.InductionPlan
}

// ScheduleHandler renders the induction plan (GET /schedule)
func (s *Server) ScheduleHandler() http.HandlerFunc {
	scheduleTmpl, err := ParseTemplate("schedule.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse schedule template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, scheduleTmpl, SchedulePageData{
			AppName:   s.config.GetAppName(),
			User:      userRecord(session.User),
			CSRFField: csrf.TemplateField(r),
			Plan:      s.fleet.InductionPlan(r.Context()),
		})
	}
}

// FitnessPageData contains data for rendering the fitness page
type FitnessPageData struct {
	AppName      string
	User         map[string]any
	CSRFField    template.HTML
	Certificates []upstream.FitnessCertificate
}

// FitnessHandler renders the fitness certificates (GET /fitness)
func (s *Server) FitnessHandler() http.HandlerFunc {
	fitnessTmpl, err := ParseTemplate("fitness.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse fitness template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, fitnessTmpl, FitnessPageData{
			AppName:      s.config.GetAppName(),
			User:         userRecord(session.User),
			CSRFField:    csrf.TemplateField(r),
			Certificates: s.fleet.FitnessCertificates(r.Context()),
		})
	}
}
