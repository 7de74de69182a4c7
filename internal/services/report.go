package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/internal/report"
	"github.com/patrickmn/go-cache"
)

// DefaultReportTTL is how long a computed report is served from cache.
const DefaultReportTTL = 5 * time.Minute

// InvoiceLister is the part of the ledger the report service reads from.
type InvoiceLister interface {
	ListInvoices(ctx context.Context, f ledger.Filter) ([]models.Invoice, error)
}

// ReportService answers report queries from the ledger and caches the
// results. Invalidate must be called when invoices are created; wiring it as
// a ledger.OnCreate hook does that. A result loaded while an Invalidate ran
// is returned to its caller but not cached.
type ReportService struct {
	invoices InvoiceLister
	cache    *cache.Cache
	ttl      time.Duration
	gen      atomic.Uint64
}

func NewReportService(invoices InvoiceLister, ttl time.Duration) *ReportService {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportService{
		invoices: invoices,
		cache:    cache.New(ttl, 2*ttl),
		ttl:      ttl,
	}
}

// Report returns the summary of invoices issued in [from, to).
func (s *ReportService) Report(ctx context.Context, from, to time.Time) (report.Report, error) {
	key := fmt.Sprintf("report:%d:%d", unix(from), unix(to))
	if cached, found := s.cache.Get(key); found {
		return cached.(report.Report), nil
	}
	gen := s.gen.Load()
	invs, err := s.invoices.ListInvoices(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return report.Report{}, fmt.Errorf("load invoices: %w", err)
	}
	r := report.Build(invs, from, to)
	s.store(gen, key, r)
	return r, nil
}

// Series returns one report per month or quarter of [from, to).
func (s *ReportService) Series(ctx context.Context, from, to time.Time, g report.Granularity) ([]report.Report, error) {
	key := fmt.Sprintf("series:%s:%d:%d", g, unix(from), unix(to))
	if cached, found := s.cache.Get(key); found {
		return cached.([]report.Report), nil
	}
	gen := s.gen.Load()
	invs, err := s.invoices.ListInvoices(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	series, err := report.BuildSeries(invs, from, to, g)
	if err != nil {
		return nil, err
	}
	s.store(gen, key, series)
	return series, nil
}

// store caches v unless Invalidate ran since gen was read.
func (s *ReportService) store(gen uint64, key string, v any) {
	if s.gen.Load() == gen {
		s.cache.Set(key, v, s.ttl)
	}
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate() {
	s.gen.Add(1)
	s.cache.Flush()
}

// InvalidateOn adapts Invalidate to a ledger.OnCreate hook.
func (s *ReportService) InvalidateOn(*models.Invoice) {
	s.Invalidate()
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
