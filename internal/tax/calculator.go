// Package tax computes GST for invoice line items.
//
// Intra-state supplies carry CGST and SGST, each half of the applicable tax.
// Inter-state supplies carry IGST only. Tax is rounded once per line, so every
// line reproduces what a single-line receipt would show, and the invoice tax is
// the sum of the rounded line taxes.
package tax

import (
	"fmt"
	"strings"

	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional digits a quantity may carry.
// Together with maxQuantity it matches the DECIMAL(12,3) column.
const QuantityScale = 3

var maxQuantity = decimal.New(1, 9)

// Line is the computed amount and tax of one line item.
type Line struct {
	Amount money.Money `json:"amount"`
	Tax    money.Money `json:"tax"`
}

// Breakdown is the result of computing tax for a set of line items.
type Breakdown struct {
	Lines    []Line      `json:"lines"`
	Subtotal money.Money `json:"subtotal"`
	CGST     money.Money `json:"cgst"`
	SGST     money.Money `json:"sgst"`
	IGST     money.Money `json:"igst"`
	Total    money.Money `json:"total"`
}

// Tax returns CGST + SGST + IGST.
func (b Breakdown) Tax() money.Money { return money.Sum(b.CGST, b.SGST, b.IGST) }

// Calculator computes invoice tax. The zero value is ready to use and safe
// for concurrent use.
type Calculator struct{}

// Compute validates items and returns the invoice totals.
// It has no side effects: items are read, never modified.
func (Calculator) Compute(items []models.LineItem, interState bool) (Breakdown, error) {
	if err := Validate(items); err != nil {
		return Breakdown{}, err
	}
	b := Breakdown{Lines: make([]Line, len(items))}
	var tax money.Money
	for i, it := range items {
		amount, err := it.UnitRate.MulQuantity(it.Quantity)
		if err != nil {
			return Breakdown{}, outOfRange(i)
		}
		lineTax, err := amount.Percent(int64(it.GSTRate))
		if err != nil {
			return Breakdown{}, outOfRange(i)
		}
		b.Lines[i] = Line{Amount: amount, Tax: lineTax}
		if b.Subtotal, err = b.Subtotal.AddChecked(amount); err != nil {
			return Breakdown{}, outOfRange(i)
		}
		if tax, err = tax.AddChecked(lineTax); err != nil {
			return Breakdown{}, outOfRange(i)
		}
		if _, err = b.Subtotal.AddChecked(tax); err != nil {
			return Breakdown{}, outOfRange(i)
		}
	}
	if interState {
		b.IGST = tax
	} else {
		b.CGST, b.SGST = tax.Split()
	}
	b.Total = money.Sum(b.Subtotal, b.CGST, b.SGST, b.IGST)
	return b, nil
}

func outOfRange(i int) error {
	return &InvalidLineItemError{Index: i, Field: "unit_rate", Reason: "amount is too large"}
}

// Compute is shorthand for Calculator{}.Compute.
func Compute(items []models.LineItem, interState bool) (Breakdown, error) {
	return Calculator{}.Compute(items, interState)
}

// Validate checks every item and returns the first violation found.
func Validate(items []models.LineItem) error {
	for i, it := range items {
		if !it.GSTRate.Valid() {
			return &InvalidLineItemError{Index: i, Field: "gst_rate", Reason: "must be one of " + rateList()}
		}
		if !it.Quantity.IsPositive() {
			return &InvalidLineItemError{Index: i, Field: "quantity", Reason: "must be greater than zero"}
		}
		if !it.Quantity.Equal(it.Quantity.Truncate(QuantityScale)) {
			return &InvalidLineItemError{Index: i, Field: "quantity", Reason: "must have at most 3 decimal places"}
		}
		if it.Quantity.GreaterThanOrEqual(maxQuantity) {
			return &InvalidLineItemError{Index: i, Field: "quantity", Reason: "must be less than 1000000000"}
		}
		if it.UnitRate.IsNegative() {
			return &InvalidLineItemError{Index: i, Field: "unit_rate", Reason: "must not be negative"}
		}
	}
	return nil
}

func rateList() string {
	parts := make([]string, len(models.GSTRates))
	for i, r := range models.GSTRates {
		parts[i] = fmt.Sprint(int(r))
	}
	return strings.Join(parts, ", ")
}
