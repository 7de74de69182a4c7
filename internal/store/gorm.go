package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-gstbooks/internal/models"
	"gorm.io/gorm"
)

// Gorm stores invoices in the invoices and line_items tables.
type Gorm struct {
	db *gorm.DB
}

// NewGorm returns a store over db. Tables must already exist (see db.Migrate).
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Save inserts the invoice and its line items in one transaction.
func (g *Gorm) Save(ctx context.Context, inv *models.Invoice) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Invoice{}).
			Where("id = ? OR number = ?", inv.ID, inv.Number).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("invoice %s: %w", inv.Number, ErrDuplicate)
		}
		row := clone(inv)
		for i := range row.LineItems {
			row.LineItems[i].ID = 0
			row.LineItems[i].InvoiceID = inv.ID
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("invoice %s: %w", inv.Number, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (g *Gorm) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	return g.first(ctx, "id = ?", id)
}

func (g *Gorm) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	return g.first(ctx, "number = ?", number)
}

func (g *Gorm) first(ctx context.Context, query string, arg any) (*models.Invoice, error) {
	var inv models.Invoice
	err := g.db.WithContext(ctx).
		Preload("LineItems", orderLines).
		Where(query, arg).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invoice %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (g *Gorm) Find(ctx context.Context, c Criteria) ([]models.Invoice, error) {
	q := g.db.WithContext(ctx).Model(&models.Invoice{})
	if !c.From.IsZero() {
		q = q.Where("issue_date >= ?", c.From)
	}
	if !c.To.IsZero() {
		q = q.Where("issue_date < ?", c.To)
	}
	if c.CustomerID != "" {
		q = q.Where("customer_id = ?", c.CustomerID)
	}
	if c.Direction != "" {
		q = q.Where("direction = ?", c.Direction)
	}
	var invs []models.Invoice
	if err := q.Preload("LineItems", orderLines).Order("issue_date ASC, id ASC").Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
