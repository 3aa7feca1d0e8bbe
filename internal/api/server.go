// Package api exposes the back-office over HTTP: the public contact form
// and intent assistant, plus the authenticated dashboard routes.
package api

import (
	"net/http"
	"time"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxFormMemory bounds the multipart form held in memory; larger parts
// spill to temporary files.
const maxFormMemory = 32 << 20

type Server struct {
	svc    *backoffice.Services
	logger logger.Logger
}

func New(svc *backoffice.Services, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{svc: svc, logger: log.WithFields(map[string]interface{}{"component": "api"})}
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/contact", s.submitContact)
		r.Post("/intent/classify", s.classifyIntent)

		r.Route("/diagnostics", func(r chi.Router) {
			r.Post("/", s.createDiagnostic)
			r.Get("/{id}", s.getDiagnostic)
			r.Post("/{id}/submit", s.submitDiagnostic)
			r.Post("/{id}/reset", s.resetDiagnostic)
			r.Delete("/{id}", s.deleteDiagnostic)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", s.signIn)
			r.With(s.authenticate).Post("/signout", s.signOut)
			r.With(s.authenticate).Get("/me", s.me)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/leads", s.listLeads)
			r.Get("/leads/search", s.searchLeads)
			r.Post("/leads/{id}/move", s.moveLead)
			r.Post("/leads/{id}/reorder", s.reorderLead)
			r.Put("/leads/{id}/proposal", s.attachProposal)
			r.Delete("/leads/{id}/proposal/pending", s.cancelProposal)

			r.Get("/vault", s.vaultListing)
			r.Get("/vault/search", s.vaultFilter)
			r.Post("/vault/open/{entryID}", s.vaultOpen)
			r.Post("/vault/breadcrumbs/{index}", s.vaultBreadcrumb)
			r.Post("/vault/next", s.vaultNextPage)
			r.Post("/vault/refresh", s.vaultRefresh)

			r.With(s.requireAdmin).Post("/crm/sync", s.syncCRM)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"demo":   s.svc.Demo(),
		"modes":  s.svc.Modes(),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}
