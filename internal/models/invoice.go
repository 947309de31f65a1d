package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRecord is one invoice line after normalization. All source files
// map onto this schema regardless of their native key spelling.
type InvoiceRecord struct {
	Country     string          `json:"country"`
	CustomerID  string          `json:"customer_id"`
	Invoice     string          `json:"invoice"`
	Price       decimal.Decimal `json:"price"`
	StreamID    string          `json:"stream_id"`
	TimesViewed int             `json:"times_viewed"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Day         int             `json:"day"`
	// Date is derived from (Year, Month, Day) at normalization time.
	Date time.Time `json:"date"`
}
