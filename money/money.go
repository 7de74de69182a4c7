// Package money provides a fixed-point currency amount with two fractional digits.
//
// A Money value counts minor units (paise, cents). Addition and subtraction are
// exact integer operations; multiplication by a quantity or a percentage goes
// through shopspring/decimal and is rounded half up exactly once, at the point
// the result becomes a Money again.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by a Money value.
const Scale = 2

// Zero is the zero amount.
const Zero Money = 0

var (
	// ErrPrecision is returned when a textual amount has more fractional digits than Scale.
	ErrPrecision = errors.New("money: more than 2 fractional digits")
	// ErrSyntax is returned when a textual amount is not a decimal number.
	ErrSyntax = errors.New("money: invalid amount")
	// ErrOverflow is returned when a result does not fit in a Money value.
	ErrOverflow = errors.New("money: amount out of range")

	half     = decimal.New(5, -1)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount in minor units.
type Money int64

// New returns an amount of minor units.
func New(minor int64) Money { return Money(minor) }

// FromMajor returns an amount of whole currency units.
func FromMajor(major int64) Money { return Money(major * 100) }

// Parse reads a decimal string such as "15000", "-12.5" or "0.05".
// Values that would need rounding are rejected with ErrPrecision.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrSyntax
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
	}
	if !inRange(shifted) {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return Money(shifted.IntPart()), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a decimal amount in major units, rounding half up to
// the minor unit. Amounts outside the int64 range of minor units return ErrOverflow.
func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(Scale).Add(half).Floor()
	if !inRange(minor) {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return Money(minor.IntPart()), nil
}

func inRange(minor decimal.Decimal) bool {
	return minor.Cmp(minMinor) >= 0 && minor.Cmp(maxMinor) <= 0
}

// Decimal returns the exact amount in major units.
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -Scale) }

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return int64(m) }

func (m Money) Add(o Money) Money { return m + o }
func (m Money) Sub(o Money) Money { return m - o }
func (m Money) Neg() Money        { return -m }

// AddChecked returns m + o, or ErrOverflow when the sum does not fit.
func (m Money) AddChecked(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m < 0:
		return -1
	case m > 0:
		return 1
	}
	return 0
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsNegative() bool { return m < 0 }

// MulQuantity returns m × q rounded half up to the minor unit.
func (m Money) MulQuantity(q decimal.Decimal) (Money, error) {
	return FromDecimal(m.Decimal().Mul(q))
}

// Percent returns m × p / 100 rounded half up to the minor unit.
func (m Money) Percent(p int64) (Money, error) {
	return FromDecimal(m.Decimal().Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100)))
}

// Split divides m into two halves that sum to m. When m has an odd number of
// minor units the extra unit goes to the first half (by magnitude).
func (m Money) Split() (first, second Money) {
	second = m / 2
	return m - second, second
}

// Sum adds all amounts.
func Sum(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total += m
	}
	return total
}

// String formats the amount with exactly two fractional digits, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// MarshalJSON encodes the amount as a decimal string to avoid float rounding in clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = raw
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value stores the amount as integer minor units.
func (m Money) Value() (driver.Value, error) { return int64(m), nil }

// Scan reads integer minor units written by Value.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v)
	case int32:
		*m = Money(v)
	case int:
		*m = Money(v)
	case float64:
		*m = Money(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		*m = Money(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		*m = Money(n)
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}
