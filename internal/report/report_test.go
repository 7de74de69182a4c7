package report

import (
	"testing"
	"time"

	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// invoice builds a single-line invoice at the given rate.
func invoice(issued time.Time, dir models.Direction, subtotal int64, rate models.GSTRate, interState bool) models.Invoice {
	sub := money.FromMajor(subtotal)
	tax, err := sub.Percent(int64(rate))
	if err != nil {
		panic(err)
	}
	inv := models.Invoice{
		Direction:    dir,
		IssueDate:    issued,
		IsInterState: interState,
		Subtotal:     sub,
		LineItems:    []models.LineItem{{GSTRate: rate, LineAmount: sub, TaxAmount: tax}},
	}
	if interState {
		inv.IGST = tax
	} else {
		inv.CGST, inv.SGST = tax.Split()
	}
	inv.Total = money.Sum(inv.Subtotal, inv.CGST, inv.SGST, inv.IGST)
	return inv
}

func TestBuild_TwoSales(t *testing.T) {
	a := invoice(date(2025, 4, 3), models.DirectionSale, 15000, 18, false)
	b := invoice(date(2025, 4, 20), models.DirectionSale, 10000, 18, true)
	require.Equal(t, money.FromMajor(17700), a.Total)
	require.Equal(t, money.FromMajor(11800), b.Total)

	r := Build([]models.Invoice{a, b}, date(2025, 4, 1), date(2025, 5, 1))
	require.Equal(t, 2, r.SalesCount)
	require.Equal(t, money.FromMajor(25000), r.TotalSales)
	require.Equal(t, money.FromMajor(1350), r.OutputTax.CGST)
	require.Equal(t, money.FromMajor(1350), r.OutputTax.SGST)
	require.Equal(t, money.FromMajor(1800), r.OutputTax.IGST)
	require.Equal(t, a.TotalTax().Add(b.TotalTax()), r.OutputTax.Total)
	require.Equal(t, money.FromMajor(4500), r.OutputTax.Total)
	require.Equal(t, money.FromMajor(4500), r.NetPayable)
}

func TestBuild_NetPayableCanBeNegative(t *testing.T) {
	invs := []models.Invoice{
		invoice(date(2025, 4, 3), models.DirectionSale, 1000, 5, false),
		invoice(date(2025, 4, 4), models.DirectionPurchase, 20000, 28, true),
	}
	r := Build(invs, date(2025, 4, 1), date(2025, 5, 1))
	require.Equal(t, money.FromMajor(50), r.OutputTax.Total)
	require.Equal(t, money.FromMajor(5600), r.InputCredit.IGST)
	require.Equal(t, money.FromMajor(20000), r.TotalPurchases)
	require.Equal(t, money.FromMajor(50-5600), r.NetPayable)
	require.True(t, r.NetPayable.IsNegative())
}

func TestBuild_HalfOpenPeriod(t *testing.T) {
	invs := []models.Invoice{
		invoice(date(2025, 3, 31), models.DirectionSale, 100, 18, false),
		invoice(date(2025, 4, 1), models.DirectionSale, 200, 18, false),
		invoice(date(2025, 5, 1), models.DirectionSale, 400, 18, false),
	}
	r := Build(invs, date(2025, 4, 1), date(2025, 5, 1))
	require.Equal(t, 1, r.SalesCount)
	require.Equal(t, money.FromMajor(200), r.TotalSales)
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil, date(2025, 4, 1), date(2025, 5, 1))
	require.Zero(t, r.SalesCount)
	require.True(t, r.OutputTax.Total.IsZero())
	require.True(t, r.InputCredit.Total.IsZero())
	require.True(t, r.NetPayable.IsZero())
	require.NotNil(t, r.ByRate)
}

func TestBuild_ByRate(t *testing.T) {
	invs := []models.Invoice{
		invoice(date(2025, 4, 3), models.DirectionSale, 1000, 18, false),
		invoice(date(2025, 4, 4), models.DirectionSale, 500, 18, true),
		invoice(date(2025, 4, 5), models.DirectionSale, 300, 0, false),
		invoice(date(2025, 4, 6), models.DirectionPurchase, 800, 12, false),
	}
	r := Build(invs, time.Time{}, time.Time{})
	require.Equal(t, []RateBucket{
		{Direction: models.DirectionPurchase, Rate: 12, Taxable: money.FromMajor(800), Tax: money.FromMajor(96)},
		{Direction: models.DirectionSale, Rate: 0, Taxable: money.FromMajor(300), Tax: money.Zero},
		{Direction: models.DirectionSale, Rate: 18, Taxable: money.FromMajor(1500), Tax: money.FromMajor(270)},
	}, r.ByRate)
}

func TestBuild_DoesNotMutate(t *testing.T) {
	invs := []models.Invoice{invoice(date(2025, 4, 3), models.DirectionSale, 1000, 18, false)}
	before := invs[0]
	Build(invs, time.Time{}, time.Time{})
	require.Equal(t, before, invs[0])
}

func TestBuildSeries_Monthly(t *testing.T) {
	invs := []models.Invoice{
		invoice(date(2025, 1, 20), models.DirectionSale, 100, 18, false),
		invoice(date(2025, 2, 1), models.DirectionSale, 200, 18, false),
		invoice(date(2025, 3, 14), models.DirectionSale, 400, 18, false),
	}
	series, err := BuildSeries(invs, date(2025, 1, 15), date(2025, 3, 15), Monthly)
	require.NoError(t, err)
	require.Len(t, series, 3)
	require.Equal(t, date(2025, 1, 15), series[0].PeriodStart)
	require.Equal(t, date(2025, 2, 1), series[0].PeriodEnd)
	require.Equal(t, date(2025, 3, 1), series[2].PeriodStart)
	require.Equal(t, date(2025, 3, 15), series[2].PeriodEnd)
	for i, want := range []int64{100, 200, 400} {
		require.Equal(t, money.FromMajor(want), series[i].TotalSales)
	}
}

func TestBuildSeries_Quarterly(t *testing.T) {
	series, err := BuildSeries(nil, date(2025, 4, 1), date(2026, 4, 1), Quarterly)
	require.NoError(t, err)
	require.Len(t, series, 4)
	require.Equal(t, date(2025, 10, 1), series[2].PeriodStart)
	require.Equal(t, date(2026, 1, 1), series[2].PeriodEnd)
}

func TestBuildSeries_Errors(t *testing.T) {
	_, err := BuildSeries(nil, date(2025, 1, 1), date(2025, 2, 1), "week")
	require.ErrorIs(t, err, ErrGranularity)
	_, err = BuildSeries(nil, date(2025, 2, 1), date(2025, 2, 1), Monthly)
	require.ErrorIs(t, err, ErrRange)
	_, err = ParseGranularity("yearly")
	require.ErrorIs(t, err, ErrGranularity)
	g, err := ParseGranularity("quarterly")
	require.NoError(t, err)
	require.Equal(t, Quarterly, g)
}
