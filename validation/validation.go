// Package validation collects per-field request violations.
package validation

import (
	"slices"
	"strings"
	"time"
)

// DateLayout is the accepted date format for request fields.
const DateLayout = "2006-01-02"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records msg for field unless the field already has a violation.
func (v Violations) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Error makes Violations usable as an error value.
func (v Violations) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func OneOf[T comparable](field string, val T, allowed []T, v Violations) {
	if !slices.Contains(allowed, val) {
		v.Add(field, "not_allowed")
	}
}

// Date parses value as DateLayout. An empty value yields the zero time and no
// violation; combine with Required when the field is mandatory.
func Date(field, value string, v Violations) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		v.Add(field, "invalid_date")
	}
	return t
}

// Before records a violation when both dates are set and later is before earlier.
func Before(field string, earlier, later time.Time, v Violations) {
	if !earlier.IsZero() && !later.IsZero() && later.Before(earlier) {
		v.Add(field, "before_start")
	}
}
