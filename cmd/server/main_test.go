package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testConfig(driver string, dir string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:     driver,
			DSN:        "file:" + filepath.Join(dir, "app.db") + "?_busy_timeout=5000",
			Path:       filepath.Join(dir, "app.bolt"),
			Migrations: true,
		},
		Sequencer: config.SequencerConfig{Timeout: 5 * time.Second},
		Invoice:   config.InvoiceConfig{Prefix: "INV", Currency: "INR"},
		Report:    config.ReportConfig{CacheTTL: time.Minute},
	}
}

func TestNewApp_Backends(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverBolt, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			app, err := NewApp(ctx, testConfig(driver, t.TempDir()))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, app.Close()) })

			for i := 0; i < 2; i++ {
				_, err = app.Ledger.CreateInvoice(ctx, ledger.CreateInput{
					Customer:  models.Customer{ID: "c1", Name: "Acme"},
					IssueDate: time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC),
					LineItems: []models.LineItem{{
						Description: "Consulting",
						Quantity:    decimal.NewFromInt(1),
						UnitRate:    money.FromMajor(15000),
						GSTRate:     18,
					}},
				})
				require.NoError(t, err)
			}
			inv, err := app.Ledger.Lookup(ctx, "INV-000002")
			require.NoError(t, err)
			require.Equal(t, money.FromMajor(17700), inv.Total)

			r, err := app.Reports.Report(ctx, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			require.Equal(t, money.FromMajor(5400), r.OutputTax.Total)

			rec := httptest.NewRecorder()
			app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestNewApp_UnknownDriver(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("mysql", t.TempDir()))
	require.Error(t, err)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GSTBOOKS_CONFIG", "")
	t.Setenv("GSTBOOKS_DATABASE_DRIVER", "memory")
	t.Setenv("GSTBOOKS_LOG_OUTPUT", "stderr")
	t.Setenv("GSTBOOKS_LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReconcileCommand(t *testing.T) {
	dir := t.TempDir()
	bank := filepath.Join(dir, "bank.json")
	book := filepath.Join(dir, "book.json")
	require.NoError(t, os.WriteFile(bank, []byte(`[{"id":"b1","date":"2025-04-02T00:00:00Z","amount":"15000","reference":"INV-001"}]`), 0o600))
	require.NoError(t, os.WriteFile(book, []byte(`[{"id":"k1","date":"2025-04-01T00:00:00Z","amount":15000,"reference":"INV-001"}]`), 0o600))

	out, err := run(t, "reconcile", "--bank", bank, "--book", book)
	require.NoError(t, err)
	var res struct {
		MatchedPairs []json.RawMessage `json:"matched_pairs"`
		Difference   string            `json:"difference"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.MatchedPairs, 1)
	require.Equal(t, "0.00", res.Difference)

	_, err = run(t, "reconcile", "--bank", bank, "--book", book, "--bank-balance", "1.234")
	require.ErrorIs(t, err, money.ErrPrecision)
}

func TestReportCommand(t *testing.T) {
	out, err := run(t, "report", "--from", "2025-04-01", "--to", "2025-07-01", "--granularity", "quarter")
	require.NoError(t, err)
	var series []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	require.Len(t, series, 1)
	require.Equal(t, "0.00", series[0]["net_payable"])

	_, err = run(t, "report", "--from", "April", "--to", "2025-07-01")
	require.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	_, err := run(t, "token", "--subject", "clerk")
	require.Error(t, err)

	t.Setenv("GSTBOOKS_AUTH_SECRET", "s3cret")
	out, err := run(t, "token", "--subject", "clerk")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
