// Package models holds the invoice data model shared by the tax engine, the
// ledger and the persistence layer. Structs double as gorm models.
package models

import "slices"

// GSTRate is a GST slab expressed in whole percent.
type GSTRate int

// GSTRates is the closed set of accepted slabs.
var GSTRates = []GSTRate{0, 5, 12, 18, 28}

// Valid reports whether r is one of GSTRates.
func (r GSTRate) Valid() bool {
	return slices.Contains(GSTRates, r)
}

// Customer identifies the counterparty of an invoice. The values are
// validated upstream and copied onto the invoice as-is.
type Customer struct {
	ID      string `gorm:"size:100;index" json:"id"`
	Name    string `gorm:"size:255" json:"name"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	GSTIN   string `gorm:"size:15" json:"gstin,omitempty"`
	Address string `gorm:"size:500" json:"address,omitempty"`
}

// Counter is a named monotonically increasing value, used to number invoices.
type Counter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName keeps the counter table name explicit for the SQL migrations.
func (Counter) TableName() string { return "invoice_counters" }
