package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-gstbooks/auth"
	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/internal/sequence"
	"github.com/diewo77/go-gstbooks/internal/services"
	"github.com/diewo77/go-gstbooks/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, seq sequence.Sequencer, tokens *auth.Tokens) *httptest.Server {
	t.Helper()
	var reports *services.ReportService
	l := ledger.New(seq, store.NewMemory(), ledger.OnCreate(func(inv *models.Invoice) { reports.InvalidateOn(inv) }))
	reports = services.NewReportService(l, time.Minute)
	srv := httptest.NewServer(New(Deps{
		Ledger:  l,
		Reports: reports,
		Tokens:  tokens,
		Log:     zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp, out
}

const consulting = `{
	"customer": {"id": "c1", "name": "Acme Traders"},
	"issue_date": "2025-04-03",
	"due_date": "2025-05-03",
	"is_inter_state": %t,
	"line_items": [{"description": "Consulting", "quantity": "1", "unit_rate": "15000", "gst_rate": 18}]
}`

func TestHealth(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)
	resp, body := do(t, srv, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestCreateAndGetInvoice(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)

	resp, body := do(t, srv, http.MethodPost, "/api/invoices", fmt.Sprintf(consulting, false), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "/api/invoices/INV-000001", resp.Header.Get("Location"))
	require.Equal(t, "INV-000001", body["number"])
	require.Equal(t, "15000.00", body["subtotal"])
	require.Equal(t, "1350.00", body["cgst"])
	require.Equal(t, "1350.00", body["sgst"])
	require.Equal(t, "0.00", body["igst"])
	require.Equal(t, "17700.00", body["total"])

	for _, key := range []string{"1", "INV-000001"} {
		resp, body = do(t, srv, http.MethodGet, "/api/invoices/"+key, "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "INV-000001", body["number"])
	}

	resp, body = do(t, srv, http.MethodGet, "/api/invoices/INV-999999", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", body["error"])
}

func TestCreateInvoice_Validation(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad gst rate", `{"customer":{"name":"A"},"line_items":[{"description":"x","quantity":"1","unit_rate":"10","gst_rate":7}]}`, "line_items[0].gst_rate"},
		{"no items", `{"customer":{"name":"A"},"line_items":[]}`, "line_items"},
		{"missing name", `{"customer":{},"line_items":[{"description":"x","quantity":"1","unit_rate":"10","gst_rate":5}]}`, "customer.name"},
		{"bad date", `{"customer":{"name":"A"},"issue_date":"03/04/2025","line_items":[{"description":"x","quantity":"1","unit_rate":"10","gst_rate":5}]}`, "issue_date"},
		{"quantity too precise", `{"customer":{"name":"A"},"line_items":[{"description":"x","quantity":"1.0001","unit_rate":"10","gst_rate":5}]}`, "line_items[0].quantity"},
		{"amount out of range", `{"customer":{"name":"A"},"line_items":[{"description":"x","quantity":"999999999","unit_rate":"90000000000000000","gst_rate":5}]}`, "line_items[0].unit_rate"},
		{"due before issue", `{"customer":{"name":"A"},"issue_date":"2025-04-03","due_date":"2025-04-01","line_items":[{"description":"x","quantity":"1","unit_rate":"10","gst_rate":5}]}`, "due_date"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPost, "/api/invoices", tc.body, "")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "validation_failed", body["error"])
			require.Contains(t, body["details"], tc.field)
		})
	}

	resp, body := do(t, srv, http.MethodPost, "/api/invoices", `{"unknown":1}`, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_body", body["error"])

	// Nothing was numbered by the rejected requests.
	resp, body = do(t, srv, http.MethodPost, "/api/invoices", fmt.Sprintf(consulting, true), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "INV-000001", body["number"])
	require.Equal(t, "2700.00", body["igst"])
}

type downSequencer struct{}

func (downSequencer) Next(context.Context) (int64, error) {
	return 0, &sequence.UnavailableError{Err: errors.New("counter offline")}
}

func TestCreateInvoice_SequencerUnavailable(t *testing.T) {
	srv := newTestServer(t, downSequencer{}, nil)
	resp, body := do(t, srv, http.MethodPost, "/api/invoices", fmt.Sprintf(consulting, false), "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "unavailable", body["error"])
}

func TestCreateInvoice_Concurrent(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)
	const n = 100
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := srv.Client().Post(srv.URL+"/api/invoices", "application/json",
				bytes.NewBufferString(fmt.Sprintf(consulting, false)))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var inv struct {
				Number string `json:"number"`
			}
			if resp.StatusCode == http.StatusCreated && json.NewDecoder(resp.Body).Decode(&inv) == nil {
				mu.Lock()
				numbers[inv.Number] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, numbers, n)
}

func TestListInvoicesAndReports(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)
	_, _ = do(t, srv, http.MethodPost, "/api/invoices", fmt.Sprintf(consulting, false), "")

	resp, body := do(t, srv, http.MethodGet, "/api/reports?from=2025-04-01&to=2025-05-01", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2700.00", body["output_tax"].(map[string]any)["total"])

	_, _ = do(t, srv, http.MethodPost, "/api/invoices",
		`{"customer":{"id":"c2","name":"B"},"issue_date":"2025-04-10","line_items":[{"description":"x","quantity":"1","unit_rate":"10000","gst_rate":18}]}`, "")

	// The report cache is flushed by invoice creation.
	resp, body = do(t, srv, http.MethodGet, "/api/reports?from=2025-04-01&to=2025-05-01", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "4500.00", body["output_tax"].(map[string]any)["total"])
	require.Equal(t, "4500.00", body["net_payable"])

	resp, body = do(t, srv, http.MethodGet, "/api/invoices?customer_id=c2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["count"])

	resp, body = do(t, srv, http.MethodGet, "/api/reports/series?from=2025-03-01&to=2025-06-01&granularity=month", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["periods"], 3)

	resp, _ = do(t, srv, http.MethodGet, "/api/reports?from=2025-04-01", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/api/reports/series?from=2025-03-01&to=2025-06-01&granularity=week", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReconciliation(t *testing.T) {
	srv := newTestServer(t, sequence.NewMemory(0), nil)
	body := `{
		"bank_balance": "15150",
		"book_balance": "15000",
		"bank": [{"id":"b1","date":"2025-04-02T00:00:00Z","amount":"15000","reference":"INV-001"},
		         {"id":"b2","date":"2025-04-05T00:00:00Z","amount":"-150","reference":"FEE"}],
		"book": [{"id":"k1","date":"2025-04-01T00:00:00Z","amount":"15000","reference":"INV-001"}]
	}`
	resp, out := do(t, srv, http.MethodPost, "/api/reconciliations", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["matched_pairs"], 1)
	require.Len(t, out["unmatched_bank"], 1)
	require.Equal(t, "150.00", out["bank_fees"])
	require.Equal(t, "0.00", out["difference"])
	require.Equal(t, true, out["reconciled"])
	require.NotEmpty(t, out["run_id"])
}

func TestAuth(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	srv := newTestServer(t, sequence.NewMemory(0), tokens)

	resp, _ := do(t, srv, http.MethodGet, "/api/invoices", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tok, err := tokens.Issue("clerk-7")
	require.NoError(t, err)
	resp, body := do(t, srv, http.MethodPost, "/api/invoices", fmt.Sprintf(consulting, false), tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "clerk-7", body["created_by"])
}
