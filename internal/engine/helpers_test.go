package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"salesdash/internal/models"
)

func cust(id string) *string { return &id }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(inv, desc string, qty int64, price string, date time.Time, country string, customer *string) models.Transaction {
	return models.Transaction{
		InvoiceID:   inv,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		InvoiceDate: date,
		Country:     country,
		CustomerID:  customer,
	}
}

// sampleTable is the three-row worked example:
// invoice 1 holds two lines from customer 10 in the US, invoice 2 one line
// from customer 11 in the UK.
func sampleTable() *Table {
	return NewTable([]models.Transaction{
		tx("1", "A", 2, "5", day("2021-01-05"), "US", cust("10")),
		tx("1", "B", 1, "3", day("2021-01-05"), "US", cust("10")),
		tx("2", "A", 1, "5", day("2021-02-01"), "UK", cust("11")),
	})
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
