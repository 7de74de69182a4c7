package models

import (
	"fmt"
	"time"

	"github.com/diewo77/go-gstbooks/money"
	"github.com/shopspring/decimal"
)

// Direction tags an invoice as something we sold or something we bought.
type Direction string

const (
	DirectionSale     Direction = "sale"
	DirectionPurchase Direction = "purchase"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionSale || d == DirectionPurchase
}

// DefaultCurrency is used when an invoice does not name one.
const DefaultCurrency = "INR"

// Invoice is an issued, immutable GST invoice.
// ID is the value handed out by the invoice sequencer; Number is its display form.
type Invoice struct {
	ID     int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number string `gorm:"size:50;uniqueIndex;not null" json:"number"`

	Direction Direction `gorm:"size:20;not null;default:'sale';index" json:"direction"`
	Currency  string    `gorm:"size:3;not null;default:'INR'" json:"currency"`

	Customer Customer `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`

	IssueDate    time.Time `gorm:"not null;index" json:"issue_date"`
	DueDate      time.Time `gorm:"not null" json:"due_date"`
	IsInterState bool      `gorm:"not null;default:false" json:"is_inter_state"`

	// Line items, ordered by Position.
	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`

	Subtotal money.Money `gorm:"not null" json:"subtotal"`
	CGST     money.Money `gorm:"not null" json:"cgst"`
	SGST     money.Money `gorm:"not null" json:"sgst"`
	IGST     money.Money `gorm:"not null" json:"igst"`
	Total    money.Money `gorm:"not null" json:"total"`

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TotalTax returns CGST + SGST + IGST.
func (i *Invoice) TotalTax() money.Money {
	return money.Sum(i.CGST, i.SGST, i.IGST)
}

// IsSale reports whether the invoice records a sale.
func (i *Invoice) IsSale() bool { return i.Direction != DirectionPurchase }

// LineItem is a single priced line on an invoice.
type LineItem struct {
	ID        uint  `gorm:"primaryKey" json:"-"`
	InvoiceID int64 `gorm:"index;not null" json:"-"`
	Position  int   `gorm:"not null;default:0" json:"position"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitRate    money.Money     `gorm:"not null" json:"unit_rate"`
	GSTRate     GSTRate         `gorm:"not null" json:"gst_rate"`

	// Filled by the tax calculator when the invoice is issued.
	LineAmount money.Money `gorm:"not null" json:"line_amount"`
	TaxAmount  money.Money `gorm:"not null" json:"tax_amount"`
}

// FormatNumber builds the display number for a sequence value, e.g. INV-000042.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
