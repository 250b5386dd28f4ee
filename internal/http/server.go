// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/middleware/security"
	"pagos/internal/middleware/trace"
	"pagos/internal/services"
	"pagos/internal/sheets"
)

// maxBodyBytes bounds request bodies; a full backup is the largest payload.
const maxBodyBytes = 8 << 20

// Options configures the API server.
type Options struct {
	// AutoDeduct is the default for paid toggles that do not say otherwise.
	AutoDeduct bool
	// Sheets publishes pending lists; nil disables the publish route.
	Sheets sheets.PendingWriter
	Logger *log.Logger
	// RequestTimeout bounds every handler. Zero means 30s.
	RequestTimeout time.Duration
}

// Server is the ledger HTTP API.
type Server struct {
	http.Server
	session *services.Session
	opts    Options
	logger  *log.Logger
	trace   *trace.Middleware
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, session *services.Session, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		session: session,
		opts:    opts,
		logger:  logger,
		trace:   trace.NewMiddleware(logger, extractClientIP),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.trace.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ledger", s.handleLedger)
		r.Get("/balances", s.handleBalances)
		r.Put("/balances", s.handleUpdateBalances)
		r.Get("/proration", s.handleProration)

		r.Route("/template", func(r chi.Router) {
			r.Get("/", s.handleTemplate)
			r.Put("/", s.handleReplaceTemplate)
			r.Post("/", s.handleAddTemplateItem)
			r.Put("/{id}", s.handleUpdateTemplateItem)
			r.Delete("/{id}", s.handleDeleteTemplateItem)
		})

		r.Post("/categories", s.handleAddCategory)
		r.Delete("/categories/{name}", s.handleRemoveCategory)
		r.Post("/accounts", s.handleAddAccount)
		r.Patch("/accounts/{id}", s.handleRenameAccount)

		r.Get("/backup", s.handleBackup)
		r.Post("/backup", s.handleImport)

		r.Route("/months/{key}", func(r chi.Router) {
			r.Get("/", s.handleMonth)
			r.Get("/status", s.handleStatus)
			r.Post("/items", s.handleAddAdhoc)
			r.Patch("/items/{id}", s.handleEditItem)
			r.Delete("/items/{id}", s.handleDeleteItem)
			r.Put("/items/{id}/paid", s.handleSetPaid)
			r.Post("/paid", s.handleMarkPaid)
			r.Post("/cleanup", s.handleDeletePaidAdhoc)
			r.Post("/regenerate", s.handleRegenerate)
			r.Delete("/regenerate", s.handleCancelRegenerate)
			r.Get("/pending.txt", s.handlePendingText)
			r.Post("/publish", s.handlePublish)
		})
	})

	s.Addr = addr
	s.Handler = r
	s.ReadHeaderTimeout = 10 * time.Second
	return s
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the stored ledger loads.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	err := s.session.Do(r.Context(), func(*core.Ledger) error { return nil })
	if err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
