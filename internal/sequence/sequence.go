// Package sequence hands out invoice numbers.
//
// A Sequencer returns strictly increasing, never repeated values. Gaps are
// allowed: a number reserved by a caller that later fails is simply skipped.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnavailable matches every *UnavailableError via errors.Is.
var ErrUnavailable = errors.New("sequencer unavailable")

// UnavailableError means no number could be reserved. Retrying the whole
// invoice creation is safe.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return ErrUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Sequencer reserves the next invoice number.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// Memory is an in-process sequencer guarded by a mutex.
type Memory struct {
	mu   sync.Mutex
	last int64
}

// NewMemory returns a sequencer whose first value is start+1.
func NewMemory(start int64) *Memory {
	return &Memory{last: start}
}

func (m *Memory) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &UnavailableError{Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last++
	return m.last, nil
}

// Last returns the most recently issued value.
func (m *Memory) Last() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type timeoutSequencer struct {
	inner   Sequencer
	timeout time.Duration
}

// WithTimeout bounds every Next call on inner. If inner does not answer in
// time, Next returns an *UnavailableError instead of waiting. A value the
// backend hands out after the deadline is discarded and becomes a gap.
func WithTimeout(inner Sequencer, d time.Duration) Sequencer {
	return &timeoutSequencer{inner: inner, timeout: d}
}

type result struct {
	n   int64
	err error
}

func (t *timeoutSequencer) Next(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		n, err := t.inner.Next(ctx)
		ch <- result{n, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			var ue *UnavailableError
			if errors.As(r.err, &ue) {
				return 0, r.err
			}
			return 0, &UnavailableError{Err: r.err}
		}
		return r.n, nil
	case <-ctx.Done():
		return 0, &UnavailableError{Err: ctx.Err()}
	}
}
