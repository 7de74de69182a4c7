package tax

import (
	"errors"
	"fmt"
)

// ErrInvalidLineItem matches every *InvalidLineItemError via errors.Is.
var ErrInvalidLineItem = errors.New("invalid line item")

// InvalidLineItemError reports the line item and field that failed validation.
// Index is -1 when the problem concerns the list as a whole.
type InvalidLineItemError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid line items: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid line item %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Is lets callers test with errors.Is(err, ErrInvalidLineItem).
func (e *InvalidLineItemError) Is(target error) bool {
	return target == ErrInvalidLineItem
}
