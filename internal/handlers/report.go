package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-gstbooks/httpx"
	"github.com/diewo77/go-gstbooks/internal/report"
	"github.com/diewo77/go-gstbooks/validation"
	"github.com/rs/zerolog"
)

// Reports is the report service surface used by the report endpoints.
type Reports interface {
	Report(ctx context.Context, from, to time.Time) (report.Report, error)
	Series(ctx context.Context, from, to time.Time, g report.Granularity) ([]report.Report, error)
}

type ReportHandler struct {
	reports Reports
	log     zerolog.Logger
}

func NewReportHandler(reports Reports, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

func period(r *http.Request) (from, to time.Time, v validation.Violations) {
	q := r.URL.Query()
	v = validation.Violations{}
	validation.Required("from", q.Get("from"), v)
	validation.Required("to", q.Get("to"), v)
	from = validation.Date("from", q.Get("from"), v)
	to = validation.Date("to", q.Get("to"), v)
	validation.Before("to", from, to, v)
	return from, to, v
}

// Get handles GET /api/reports?from=&to=. The period is [from, to).
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	from, to, v := period(r)
	if !v.Empty() {
		writeError(w, h.log, v)
		return
	}
	rep, err := h.reports.Report(r.Context(), from, to)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

// Series handles GET /api/reports/series?from=&to=&granularity=.
func (h *ReportHandler) Series(w http.ResponseWriter, r *http.Request) {
	from, to, v := period(r)
	g, err := report.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		v.Add("granularity", "not_allowed")
	}
	if !v.Empty() {
		writeError(w, h.log, v)
		return
	}
	series, err := h.reports.Series(r.Context(), from, to, g)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"granularity": g, "periods": series})
}
