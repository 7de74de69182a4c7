// Package store persists issued invoices.
//
// Every implementation saves an invoice and its line items atomically: after
// Save returns, either the whole invoice is visible or nothing is.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/diewo77/go-gstbooks/internal/models"
)

var (
	// ErrNotFound is returned when no invoice has the requested id.
	ErrNotFound = errors.New("invoice not found")
	// ErrDuplicate is returned when an invoice with the same id or number already exists.
	ErrDuplicate = errors.New("invoice already exists")
)

// Criteria narrows Find. Zero fields do not filter.
// The date range is half-open: From <= IssueDate < To.
type Criteria struct {
	From       time.Time
	To         time.Time
	CustomerID string
	Direction  models.Direction
}

// Match reports whether inv satisfies c.
func (c Criteria) Match(inv *models.Invoice) bool {
	if !c.From.IsZero() && inv.IssueDate.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !inv.IssueDate.Before(c.To) {
		return false
	}
	if c.CustomerID != "" && inv.Customer.ID != c.CustomerID {
		return false
	}
	if c.Direction != "" && inv.Direction != c.Direction {
		return false
	}
	return true
}

// Store is the persistence collaborator of the invoice ledger.
type Store interface {
	Save(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*models.Invoice, error)
	Find(ctx context.Context, c Criteria) ([]models.Invoice, error)
}

// SortByIssueDate orders invoices by issue date, then id.
func SortByIssueDate(invs []models.Invoice) {
	sort.SliceStable(invs, func(i, j int) bool {
		if !invs[i].IssueDate.Equal(invs[j].IssueDate) {
			return invs[i].IssueDate.Before(invs[j].IssueDate)
		}
		return invs[i].ID < invs[j].ID
	})
}

// clone returns a deep copy so callers cannot mutate stored line items.
func clone(inv *models.Invoice) models.Invoice {
	out := *inv
	out.LineItems = append([]models.LineItem(nil), inv.LineItems...)
	return out
}
