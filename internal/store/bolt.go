package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/diewo77/go-gstbooks/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the bolt store.
const (
	BucketInvoices = "invoices"
	BucketNumbers  = "invoice_numbers"
)

// Bolt stores invoices as JSON documents keyed by id, with a secondary
// number → id index. Each Save is a single bbolt write transaction.
type Bolt struct {
	db *bolt.DB
}

// NewBolt initialises the buckets and returns a store over db.
func NewBolt(db *bolt.DB) (*Bolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketInvoices, BucketNumbers} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Save(ctx context.Context, inv *models.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		invoices := tx.Bucket([]byte(BucketInvoices))
		numbers := tx.Bucket([]byte(BucketNumbers))
		key := itob(inv.ID)
		if invoices.Get(key) != nil || numbers.Get([]byte(inv.Number)) != nil {
			return fmt.Errorf("invoice %s: %w", inv.Number, ErrDuplicate)
		}
		if err := invoices.Put(key, data); err != nil {
			return err
		}
		return numbers.Put([]byte(inv.Number), key)
	})
}

func (b *Bolt) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketInvoices)).Get(itob(id))
		if data == nil {
			return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &inv)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (b *Bolt) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var id int64
	err := b.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(BucketNumbers)).Get([]byte(number))
		if key == nil {
			return fmt.Errorf("invoice %s: %w", number, ErrNotFound)
		}
		id = btoi(key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Get(ctx, id)
}

func (b *Bolt) Find(ctx context.Context, c Criteria) ([]models.Invoice, error) {
	out := make([]models.Invoice, 0)
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketInvoices)).ForEach(func(_, v []byte) error {
			var inv models.Invoice
			if err := json.Unmarshal(v, &inv); err != nil {
				return fmt.Errorf("unmarshal invoice: %w", err)
			}
			if c.Match(&inv) {
				out = append(out, inv)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	SortByIssueDate(out)
	return out, nil
}

// itob encodes ids big-endian so bucket order follows numeric order.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
