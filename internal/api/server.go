// Package api is the HTTP transport of the tracker service.
//
// It only decodes requests, resolves the caller and maps results and errors
// to JSON; all rules live in the domain packages.
//
// Routes:
//
//	GET    /health
//	POST   /auth/register | /auth/login | /auth/logout
//	GET    /applications/                        → list (optional ?status=)
//	POST   /applications/                        → create
//	GET    /applications/{id}
//	PATCH  /applications/{id}                    → partial update
//	DELETE /applications/{id}
//	POST   /applications/{id}/move               → move card to another status
//	POST   /applications/{id}/follow-up          → record a sent follow-up
//	GET    /applications/{id}/follow-up-timing   → recommended follow-up date
//	GET    /reminders
//	POST   /reminders/{id}/dismiss
//	DELETE /reminders/dismissed                  → bring dismissed reminders back
//	POST   /ai/cover-letter
//	POST   /emails/ingest
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/coverletter"
	"jobmate/tracker-service/internal/heuristics"
	"jobmate/tracker-service/internal/ingest"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/reminder"
)

// Deps are the services behind the routes.
type Deps struct {
	Auth        *auth.Service
	Apps        *kanban.Service
	Reminders   *reminder.Service
	CoverLetter *coverletter.Service
	Ingester    *ingest.Ingester
	Rules       *heuristics.Rules

	CORSAllowedOrigin string
	Version           string
}

// Server holds shared dependencies.
type Server struct {
	Deps
	logger zerolog.Logger
}

// NewServer returns a configured Server.
func NewServer(d Deps) *Server {
	if d.Rules == nil {
		d.Rules = heuristics.Default()
	}
	return &Server{Deps: d, logger: log.With().Str("component", "http").Logger()}
}

// Handler mounts every route and wraps them with logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var h http.Handler = mux
	h = withCORS(s.CORSAllowedOrigin, h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(h)
	return hlog.NewHandler(s.logger)(h)
}

// RegisterRoutes mounts all tracker-service routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/logout", s.logout)

	for _, p := range []string{"/applications", "/applications/{$}"} {
		mux.HandleFunc("GET "+p, s.requireAuth(s.listApplications))
		mux.HandleFunc("POST "+p, s.requireAuth(s.createApplication))
	}
	mux.HandleFunc("GET /applications/{id}", s.requireAuth(s.getApplication))
	mux.HandleFunc("PATCH /applications/{id}", s.requireAuth(s.updateApplication))
	mux.HandleFunc("DELETE /applications/{id}", s.requireAuth(s.deleteApplication))
	mux.HandleFunc("POST /applications/{id}/move", s.requireAuth(s.moveCard))
	mux.HandleFunc("POST /applications/{id}/follow-up", s.requireAuth(s.recordFollowUp))
	mux.HandleFunc("GET /applications/{id}/follow-up-timing", s.requireAuth(s.followUpTiming))

	mux.HandleFunc("GET /reminders", s.requireAuth(s.listReminders))
	mux.HandleFunc("POST /reminders/{id}/dismiss", s.requireAuth(s.dismissReminder))
	mux.HandleFunc("DELETE /reminders/dismissed", s.requireAuth(s.resetDismissals))

	mux.HandleFunc("POST /ai/cover-letter", s.requireAuth(s.coverLetter))
	mux.HandleFunc("POST /emails/ingest", s.requireAuth(s.ingestEmail))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "tracker-service",
		"version": s.Version,
	})
}
