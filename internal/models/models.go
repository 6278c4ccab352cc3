package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one line item of an invoice.
type Transaction struct {
	InvoiceID   string
	StockCode   string
	Description string
	Quantity    int64 // negative for returns
	UnitPrice   decimal.Decimal
	InvoiceDate time.Time
	CustomerID  *string // nil for guest checkouts
	Country     string
}

// LineAmount is Quantity * UnitPrice. Always derived, never stored.
func (t Transaction) LineAmount() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// Report bundles everything a dashboard page renders for one selection.
type Report struct {
	Metrics    MetricsResult     `json:"metrics"`
	Aggregates AggregationResult `json:"aggregates"`
}

type MetricsResult struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	OrderCount    int             `json:"order_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	UnitsSold     int64           `json:"units_sold"`
}

type AggregationResult struct {
	MonthlyTrend []MonthlyItem  `json:"monthly_trend"`
	TopProducts  []ProductItem  `json:"top_products"`
	RegionTotals []RegionItem   `json:"region_totals"`
	TopCustomers []CustomerItem `json:"top_customers"`
}

type MonthlyItem struct {
	Month string          `json:"month"`
	Sales decimal.Decimal `json:"sales"`
}

type ProductItem struct {
	Description string          `json:"description"`
	Sales       decimal.Decimal `json:"sales"`
}

type RegionItem struct {
	Country string          `json:"country"`
	Sales   decimal.Decimal `json:"sales"`
}

// CustomerItem is one row of the customer ranking. Sales without a customer
// ID are reported as a single bucket with Anonymous set and an empty ID.
type CustomerItem struct {
	CustomerID string          `json:"customer_id"`
	Anonymous  bool            `json:"anonymous,omitempty"`
	Sales      decimal.Decimal `json:"sales"`
}

// FilterOptions describes the selectable values of a loaded table.
type FilterOptions struct {
	MinDate      time.Time `json:"min_date"`
	MaxDate      time.Time `json:"max_date"`
	Countries    []string  `json:"countries"`
	Descriptions []string  `json:"descriptions"`
}
