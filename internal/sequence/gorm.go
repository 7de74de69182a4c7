package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-gstbooks/internal/models"
	"gorm.io/gorm"
)

// DefaultCounter is the counter row used for invoice numbers.
const DefaultCounter = "invoice"

// GormCounter increments a row of the invoice_counters table inside a
// transaction. The UPDATE takes the row (postgres) or database (sqlite) write
// lock, so concurrent callers serialize on it and each reads its own value.
type GormCounter struct {
	db   *gorm.DB
	name string
}

// NewGormCounter returns a sequencer backed by the named counter row.
func NewGormCounter(db *gorm.DB, name string) *GormCounter {
	if name == "" {
		name = DefaultCounter
	}
	return &GormCounter{db: db, name: name}
}

// Ensure creates the counter row if it does not exist yet.
func (g *GormCounter) Ensure(ctx context.Context) error {
	c := models.Counter{Name: g.name}
	return g.db.WithContext(ctx).Where(models.Counter{Name: g.name}).FirstOrCreate(&c).Error
}

func (g *GormCounter) Next(ctx context.Context) (int64, error) {
	var next int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Counter{}).
			Where("name = ?", g.name).
			UpdateColumn("value", gorm.Expr("value + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("counter %q missing", g.name)
		}
		var c models.Counter
		if err := tx.Where("name = ?", g.name).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("counter %q missing", g.name)
			}
			return err
		}
		next = c.Value
		return nil
	})
	if err != nil {
		return 0, &UnavailableError{Err: err}
	}
	return next, nil
}
