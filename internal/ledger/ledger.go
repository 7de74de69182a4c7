// Package ledger issues and stores GST invoices.
//
// CreateInvoice computes tax, reserves a number from the sequencer and
// persists the invoice. A failure at any step leaves nothing persisted. A
// number that was reserved before a failure is never handed out again.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/internal/sequence"
	"github.com/diewo77/go-gstbooks/internal/store"
	"github.com/diewo77/go-gstbooks/internal/tax"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by lookups that match no invoice.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidDates is returned when the due date precedes the issue date.
	ErrInvalidDates = errors.New("due date is before issue date")
	// ErrInvalidDirection is returned for a direction other than sale or purchase.
	ErrInvalidDirection = errors.New("direction must be sale or purchase")
)

// DefaultPrefix is used for invoice numbers when none is configured.
const DefaultPrefix = "INV"

// CreateInput carries everything needed to issue an invoice. Customer
// identity and IsInterState are trusted as given.
type CreateInput struct {
	Customer     models.Customer
	LineItems    []models.LineItem
	IsInterState bool
	IssueDate    time.Time
	DueDate      time.Time
	Direction    models.Direction
	Currency     string
	CreatedBy    string
}

// Filter narrows ListInvoices. The date range is half-open.
type Filter = store.Criteria

// Option configures a Ledger.
type Option func(*Ledger)

// WithPrefix sets the invoice number prefix.
func WithPrefix(p string) Option { return func(l *Ledger) { l.prefix = p } }

// WithCurrency sets the currency used when CreateInput names none.
func WithCurrency(c string) Option { return func(l *Ledger) { l.currency = strings.ToUpper(c) } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithLogger sets the ledger logger.
func WithLogger(log zerolog.Logger) Option { return func(l *Ledger) { l.log = log } }

// OnCreate registers fn to run after every successfully persisted invoice.
func OnCreate(fn func(*models.Invoice)) Option {
	return func(l *Ledger) { l.hooks = append(l.hooks, fn) }
}

// Ledger owns invoice records.
type Ledger struct {
	seq   sequence.Sequencer
	store store.Store
	calc  tax.Calculator

	prefix   string
	currency string
	now      func() time.Time
	log      zerolog.Logger
	hooks    []func(*models.Invoice)
}

// New returns a ledger numbering invoices from seq and persisting them in st.
func New(seq sequence.Sequencer, st store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		seq:      seq,
		store:    st,
		prefix:   DefaultPrefix,
		currency: models.DefaultCurrency,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateInvoice validates the input, computes tax, reserves the next number
// and persists the invoice. Errors from the tax calculator and the sequencer
// are returned unchanged in kind: errors.Is works with tax.ErrInvalidLineItem
// and sequence.ErrUnavailable.
func (l *Ledger) CreateInvoice(ctx context.Context, in CreateInput) (*models.Invoice, error) {
	if len(in.LineItems) == 0 {
		return nil, &tax.InvalidLineItemError{Index: -1, Field: "line_items", Reason: "at least one line item is required"}
	}
	dir := in.Direction
	if dir == "" {
		dir = models.DirectionSale
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%q: %w", in.Direction, ErrInvalidDirection)
	}
	now := l.now()
	issued := in.IssueDate
	if issued.IsZero() {
		issued = now
	}
	due := in.DueDate
	if due.IsZero() {
		due = issued
	}
	if due.Before(issued) {
		return nil, ErrInvalidDates
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = l.currency
	}

	bd, err := l.calc.Compute(in.LineItems, in.IsInterState)
	if err != nil {
		return nil, err
	}

	n, err := l.seq.Next(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("invoice number not reserved")
		if !errors.Is(err, sequence.ErrUnavailable) {
			err = &sequence.UnavailableError{Err: err}
		}
		return nil, err
	}

	inv := &models.Invoice{
		ID:           n,
		Number:       models.FormatNumber(l.prefix, n),
		Direction:    dir,
		Currency:     currency,
		Customer:     in.Customer,
		IssueDate:    issued,
		DueDate:      due,
		IsInterState: in.IsInterState,
		LineItems:    make([]models.LineItem, len(in.LineItems)),
		Subtotal:     bd.Subtotal,
		CGST:         bd.CGST,
		SGST:         bd.SGST,
		IGST:         bd.IGST,
		Total:        bd.Total,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
	}
	for i, it := range in.LineItems {
		it.ID = 0
		it.InvoiceID = n
		it.Position = i
		it.LineAmount = bd.Lines[i].Amount
		it.TaxAmount = bd.Lines[i].Tax
		inv.LineItems[i] = it
	}

	if err := l.store.Save(ctx, inv); err != nil {
		l.log.Error().Err(err).Str("number", inv.Number).Msg("invoice not saved, number skipped")
		return nil, fmt.Errorf("save invoice %s: %w", inv.Number, err)
	}

	l.log.Info().
		Str("number", inv.Number).
		Str("direction", string(inv.Direction)).
		Stringer("total", inv.Total).
		Msg("invoice created")
	for _, fn := range l.hooks {
		fn(inv)
	}
	return inv, nil
}

// GetInvoice returns the invoice with the given sequence id.
func (l *Ledger) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	return l.store.Get(ctx, id)
}

// GetInvoiceByNumber returns the invoice with the given display number.
func (l *Ledger) GetInvoiceByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	return l.store.GetByNumber(ctx, number)
}

// Lookup resolves key as a numeric id first, then as a display number.
func (l *Ledger) Lookup(ctx context.Context, key string) (*models.Invoice, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return l.GetInvoice(ctx, id)
	}
	return l.GetInvoiceByNumber(ctx, key)
}

// ListInvoices returns the invoices matching f ordered by issue date. Every
// call reads the store afresh, so the result can be requested repeatedly.
func (l *Ledger) ListInvoices(ctx context.Context, f Filter) ([]models.Invoice, error) {
	invs, err := l.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if invs == nil {
		invs = []models.Invoice{}
	}
	store.SortByIssueDate(invs)
	return invs, nil
}
