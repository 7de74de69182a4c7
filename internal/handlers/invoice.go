package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-gstbooks/auth"
	"github.com/diewo77/go-gstbooks/httpx"
	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/diewo77/go-gstbooks/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// InvoiceLedger is the ledger surface used by the invoice endpoints.
type InvoiceLedger interface {
	CreateInvoice(ctx context.Context, in ledger.CreateInput) (*models.Invoice, error)
	Lookup(ctx context.Context, key string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, f ledger.Filter) ([]models.Invoice, error)
}

type InvoiceHandler struct {
	ledger InvoiceLedger
	log    zerolog.Logger
}

func NewInvoiceHandler(l InvoiceLedger, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{ledger: l, log: log}
}

type lineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    money.Money     `json:"unit_rate"`
	GSTRate     int             `json:"gst_rate"`
}

type createInvoiceRequest struct {
	Customer     models.Customer   `json:"customer"`
	LineItems    []lineItemRequest `json:"line_items"`
	IsInterState bool              `json:"is_inter_state"`
	IssueDate    string            `json:"issue_date"`
	DueDate      string            `json:"due_date"`
	Direction    string            `json:"direction"`
	Currency     string            `json:"currency"`
}

var directions = []string{"", string(models.DirectionSale), string(models.DirectionPurchase)}

// input checks the request shape. Tax rules (rates, quantities, amounts) are
// left to the ledger so they are enforced in one place.
func (req *createInvoiceRequest) input() (ledger.CreateInput, error) {
	v := validation.Violations{}
	validation.Required("customer.name", req.Customer.Name, v)
	validation.OneOf("direction", req.Direction, directions, v)
	issued := validation.Date("issue_date", req.IssueDate, v)
	due := validation.Date("due_date", req.DueDate, v)
	if len(req.Currency) != 0 && len(req.Currency) != 3 {
		v.Add("currency", "invalid_currency")
	}
	items := make([]models.LineItem, len(req.LineItems))
	for i, li := range req.LineItems {
		items[i] = models.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitRate:    li.UnitRate,
			GSTRate:     models.GSTRate(li.GSTRate),
		}
	}
	if !v.Empty() {
		return ledger.CreateInput{}, v
	}
	return ledger.CreateInput{
		Customer:     req.Customer,
		LineItems:    items,
		IsInterState: req.IsInterState,
		IssueDate:    issued,
		DueDate:      due,
		Direction:    models.Direction(req.Direction),
		Currency:     req.Currency,
	}, nil
}

// Create handles POST /api/invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if sub, ok := auth.SubjectFromContext(r.Context()); ok {
		in.CreatedBy = sub
	}
	inv, err := h.ledger.CreateInvoice(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/invoices/"+inv.Number)
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get handles GET /api/invoices/{id}; id is a sequence id or an invoice number.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.ledger.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// List handles GET /api/invoices?from=&to=&customer_id=&direction=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	f := ledger.Filter{
		From:       validation.Date("from", q.Get("from"), v),
		To:         validation.Date("to", q.Get("to"), v),
		CustomerID: q.Get("customer_id"),
		Direction:  models.Direction(q.Get("direction")),
	}
	validation.OneOf("direction", q.Get("direction"), directions, v)
	validation.Before("to", f.From, f.To, v)
	if !v.Empty() {
		writeError(w, h.log, v)
		return
	}
	invs, err := h.ledger.ListInvoices(r.Context(), f)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invs, "count": len(invs)})
}
