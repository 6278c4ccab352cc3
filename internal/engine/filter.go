package engine

import (
	"salesdash/internal/models"
)

// Filter returns the rows of table that pass every dimension of spec, in
// table order. The source table is left untouched.
//
// Dates compare by calendar day, inclusive at both ends. A date range with
// only one endpoint picked (a range picker mid-selection) applies no date
// restriction at all rather than failing the request.
func Filter(table *Table, spec models.FilterSpec) *Table {
	useDates := spec.DateRange.Complete()
	var from, to int32
	if useDates {
		from, to = dayKey(spec.DateRange.Start), dayKey(spec.DateRange.End)
	}

	out := make([]models.Transaction, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := table.rows[i]
		if useDates {
			if d := dayKey(row.InvoiceDate); d < from || d > to {
				continue
			}
		}
		if spec.Countries != nil && !spec.Countries.Has(row.Country) {
			continue
		}
		if spec.Descriptions != nil && !spec.Descriptions.Has(row.Description) {
			continue
		}
		out = append(out, row)
	}
	return &Table{rows: out}
}

// Options lists what a caller can filter on: the date bounds of the table
// and its distinct countries and descriptions in first-seen order.
func Options(table *Table) models.FilterOptions {
	opts := models.FilterOptions{
		Countries:    make([]string, 0),
		Descriptions: make([]string, 0),
	}
	seenC := make(map[string]bool)
	seenD := make(map[string]bool)
	for i := 0; i < table.Len(); i++ {
		row := table.rows[i]
		if opts.MinDate.IsZero() || row.InvoiceDate.Before(opts.MinDate) {
			opts.MinDate = row.InvoiceDate
		}
		if row.InvoiceDate.After(opts.MaxDate) {
			opts.MaxDate = row.InvoiceDate
		}
		if !seenC[row.Country] {
			seenC[row.Country] = true
			opts.Countries = append(opts.Countries, row.Country)
		}
		if !seenD[row.Description] {
			seenD[row.Description] = true
			opts.Descriptions = append(opts.Descriptions, row.Description)
		}
	}
	return opts
}
