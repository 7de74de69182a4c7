// Package server assembles the chi router for the JSON API.
package server

import (
	"net/http"
	"time"

	"github.com/diewo77/go-gstbooks/auth"
	"github.com/diewo77/go-gstbooks/internal/handlers"
	"github.com/diewo77/go-gstbooks/internal/logger"
	"github.com/diewo77/go-gstbooks/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Ledger    handlers.InvoiceLedger
	Reports   handlers.Reports
	Reconcile *reconcile.Engine
	// Tokens enables bearer auth on /api when set.
	Tokens *auth.Tokens
	Ping   handlers.Pinger
	Log    zerolog.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	if d.Reconcile == nil {
		d.Reconcile = reconcile.NewEngine()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handlers.Health(d.Ping))

	invoices := handlers.NewInvoiceHandler(d.Ledger, d.Log.With().Str("component", "invoices").Logger())
	recon := handlers.NewReconcileHandler(d.Reconcile, d.Log.With().Str("component", "reconcile").Logger())
	reports := handlers.NewReportHandler(d.Reports, d.Log.With().Str("component", "reports").Logger())

	r.Route("/api", func(r chi.Router) {
		if d.Tokens != nil {
			r.Use(d.Tokens.Middleware)
		}
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoices.List)
			r.Post("/", invoices.Create)
			r.Get("/{id}", invoices.Get)
		})
		r.Post("/reconciliations", recon.Create)
		r.Get("/reports", reports.Get)
		r.Get("/reports/series", reports.Series)
	})
	return r
}

// requestLogger logs method, path, status and duration of every request and
// stores a request-scoped logger in the context.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := logger.WithRequestID(base, middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := l.Info()
			if status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
