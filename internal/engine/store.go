package engine

import (
	"time"

	"salesdash/internal/models"
)

// Table is an immutable, ordered set of transactions.
// Every filter produces a new Table; nothing mutates an existing one.
type Table struct {
	rows []models.Transaction
}

// NewTable copies rows into a new Table.
func NewTable(rows []models.Transaction) *Table {
	cp := make([]models.Transaction, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a copy of the i-th transaction.
func (t *Table) Row(i int) models.Transaction {
	return t.rows[i]
}

// Rows returns a copy of all transactions in table order.
func (t *Table) Rows() []models.Transaction {
	if t == nil {
		return nil
	}
	cp := make([]models.Transaction, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// dayKey packs a calendar date as YYYYMMDD so that date comparisons ignore
// the time of day.
func dayKey(ts time.Time) int32 {
	y, m, d := ts.Date()
	return int32(y)*10000 + int32(m)*100 + int32(d)
}
