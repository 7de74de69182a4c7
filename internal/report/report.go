// Package report aggregates invoices into period tax summaries.
//
// Reports are derived data: they read invoices and never modify them, and an
// empty period yields an all-zero report rather than an error.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/money"
)

// TaxTotals sums tax by type.
type TaxTotals struct {
	CGST  money.Money `json:"cgst"`
	SGST  money.Money `json:"sgst"`
	IGST  money.Money `json:"igst"`
	Total money.Money `json:"total"`
}

func (t *TaxTotals) add(inv *models.Invoice) {
	t.CGST = t.CGST.Add(inv.CGST)
	t.SGST = t.SGST.Add(inv.SGST)
	t.IGST = t.IGST.Add(inv.IGST)
	t.Total = money.Sum(t.CGST, t.SGST, t.IGST)
}

// RateBucket is the taxable value and tax of all lines at one GST rate.
type RateBucket struct {
	Direction models.Direction `json:"direction"`
	Rate      models.GSTRate   `json:"gst_rate"`
	Taxable   money.Money      `json:"taxable"`
	Tax       money.Money      `json:"tax"`
}

// Report summarises the invoices issued in [PeriodStart, PeriodEnd).
// TotalSales and TotalPurchases are taxable values, before tax.
type Report struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	SalesCount     int         `json:"sales_count"`
	PurchaseCount  int         `json:"purchase_count"`
	TotalSales     money.Money `json:"total_sales"`
	TotalPurchases money.Money `json:"total_purchases"`

	OutputTax   TaxTotals `json:"output_tax"`
	InputCredit TaxTotals `json:"input_credit"`

	// NetPayable is OutputTax.Total - InputCredit.Total. A negative value
	// is a refundable credit.
	NetPayable money.Money `json:"net_payable"`

	ByRate []RateBucket `json:"by_rate"`
}

// Build aggregates the invoices whose issue date falls in [start, end).
// A zero start or end leaves that side of the range open.
func Build(invoices []models.Invoice, start, end time.Time) Report {
	r := Report{PeriodStart: start, PeriodEnd: end, ByRate: []RateBucket{}}
	type bucketKey struct {
		dir  models.Direction
		rate models.GSTRate
	}
	buckets := make(map[bucketKey]*RateBucket)

	for i := range invoices {
		inv := &invoices[i]
		if !inPeriod(inv.IssueDate, start, end) {
			continue
		}
		dir := models.DirectionSale
		if inv.IsSale() {
			r.SalesCount++
			r.TotalSales = r.TotalSales.Add(inv.Subtotal)
			r.OutputTax.add(inv)
		} else {
			dir = models.DirectionPurchase
			r.PurchaseCount++
			r.TotalPurchases = r.TotalPurchases.Add(inv.Subtotal)
			r.InputCredit.add(inv)
		}
		for _, li := range inv.LineItems {
			k := bucketKey{dir, li.GSTRate}
			b, ok := buckets[k]
			if !ok {
				b = &RateBucket{Direction: dir, Rate: li.GSTRate}
				buckets[k] = b
			}
			b.Taxable = b.Taxable.Add(li.LineAmount)
			b.Tax = b.Tax.Add(li.TaxAmount)
		}
	}
	r.NetPayable = r.OutputTax.Total.Sub(r.InputCredit.Total)

	for _, b := range buckets {
		r.ByRate = append(r.ByRate, *b)
	}
	slices.SortFunc(r.ByRate, func(a, b RateBucket) int {
		return cmp.Or(cmp.Compare(a.Direction, b.Direction), cmp.Compare(a.Rate, b.Rate))
	})
	return r
}

func inPeriod(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	return end.IsZero() || t.Before(end)
}

// Granularity is the length of one period in a series.
type Granularity string

const (
	Monthly   Granularity = "month"
	Quarterly Granularity = "quarter"
)

var (
	// ErrGranularity is returned for an unknown series granularity.
	ErrGranularity = errors.New("granularity must be month or quarter")
	// ErrRange is returned when a series has no positive-length range.
	ErrRange = errors.New("series end must be after start")
)

// ParseGranularity accepts month/monthly and quarter/quarterly.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "month", "monthly":
		return Monthly, nil
	case "quarter", "quarterly":
		return Quarterly, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrGranularity)
}

// BuildSeries splits [start, end) at calendar month or quarter boundaries
// and builds one report per piece. The first and last periods may be partial.
func BuildSeries(invoices []models.Invoice, start, end time.Time, g Granularity) ([]Report, error) {
	if g != Monthly && g != Quarterly {
		return nil, fmt.Errorf("%q: %w", g, ErrGranularity)
	}
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return nil, ErrRange
	}
	var out []Report
	for from := start; from.Before(end); {
		to := nextBoundary(from, g)
		if to.After(end) {
			to = end
		}
		out = append(out, Build(invoices, from, to))
		from = to
	}
	return out, nil
}

// nextBoundary returns the first instant of the month or quarter after t's.
func nextBoundary(t time.Time, g Granularity) time.Time {
	month := t.Month()
	if g == Quarterly {
		month = ((month-1)/3)*3 + 1
		return time.Date(t.Year(), month+3, 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), month+1, 1, 0, 0, 0, 0, t.Location())
}
