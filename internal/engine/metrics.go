package engine

import (
	"github.com/shopspring/decimal"

	"salesdash/internal/models"
)

// ComputeMetrics returns the headline KPIs of table. An empty table yields
// all-zero metrics; the average order value falls back to zero when there
// are no orders.
func ComputeMetrics(table *Table) models.MetricsResult {
	res := models.MetricsResult{
		TotalSales:    decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	invoices := make(map[string]struct{})
	for i := 0; i < table.Len(); i++ {
		row := table.rows[i]
		res.TotalSales = res.TotalSales.Add(row.LineAmount())
		res.UnitsSold += row.Quantity
		invoices[row.InvoiceID] = struct{}{}
	}
	res.OrderCount = len(invoices)
	if res.OrderCount > 0 {
		res.AvgOrderValue = res.TotalSales.Div(decimal.NewFromInt(int64(res.OrderCount)))
	}
	return res
}
