package sequence

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bolt uses bbolt's per-bucket sequence. NextSequence runs inside a write
// transaction, and bbolt allows one writer at a time.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// NewBolt creates the bucket if needed and returns a sequencer over it.
func NewBolt(db *bolt.DB, bucket string) (*Bolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return &Bolt{db: db, bucket: []byte(bucket)}, nil
}

func (b *Bolt) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &UnavailableError{Err: err}
	}
	var id int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		if bk == nil {
			return fmt.Errorf("bucket %s not found", b.bucket)
		}
		seq, err := bk.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		return nil
	})
	if err != nil {
		return 0, &UnavailableError{Err: err}
	}
	return id, nil
}
