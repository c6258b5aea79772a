package server

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"
)

// StaticPageData contains data for the pages with no upstream fetch
type StaticPageData struct {
	AppName   string
	User      map[string]any
	CSRFField template.HTML
}

// IndexHandler renders the public landing page (GET /)
func (s *Server) IndexHandler() http.HandlerFunc {
	indexTmpl, err := ParseTemplate("index.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse index template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// ServeMux treats "GET /" as a catch-all; anything but the root
		// itself is a 404 here.
		if r.URL.Path != RouteIndex {
			http.NotFound(w, r)
			return
		}
		renderTemplate(w, indexTmpl, StaticPageData{AppName: s.config.GetAppName()})
	}
}

// StaticPageHandler renders a protected page that needs no upstream data,
// only the session's user record.
func (s *Server) StaticPageHandler(templateName string) http.HandlerFunc {
	tmpl, err := ParseTemplate(templateName)
	if err != nil {
		log.Err(err).Str("template", templateName).Msg("Failed to parse template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, _ := currentSession(r)
		renderTemplate(w, tmpl, StaticPageData{
			AppName:   s.config.GetAppName(),
			User:      userRecord(session.User),
			CSRFField: csrf.TemplateField(r),
		})
	}
}

// HealthzHandler reports process liveness (GET /healthz)
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
