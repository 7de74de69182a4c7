package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/diewo77/go-gstbooks/internal/models"
)

// Memory keeps invoices in a map. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	byID     map[int64]models.Invoice
	byNumber map[string]int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:     make(map[int64]models.Invoice),
		byNumber: make(map[string]int64),
	}
}

func (m *Memory) Save(ctx context.Context, inv *models.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[inv.ID]; ok {
		return fmt.Errorf("invoice %d: %w", inv.ID, ErrDuplicate)
	}
	if _, ok := m.byNumber[inv.Number]; ok {
		return fmt.Errorf("invoice %s: %w", inv.Number, ErrDuplicate)
	}
	m.byID[inv.ID] = clone(inv)
	m.byNumber[inv.Number] = inv.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id int64) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	out := clone(&inv)
	return &out, nil
}

func (m *Memory) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	m.mu.RLock()
	id, ok := m.byNumber[number]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", number, ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *Memory) Find(_ context.Context, c Criteria) ([]models.Invoice, error) {
	m.mu.RLock()
	out := make([]models.Invoice, 0, len(m.byID))
	for _, inv := range m.byID {
		if c.Match(&inv) {
			out = append(out, clone(&inv))
		}
	}
	m.mu.RUnlock()
	SortByIssueDate(out)
	return out, nil
}
