package engine

import (
	"golang.org/x/sync/errgroup"

	"salesdash/internal/models"
)

// Assembler builds dashboard reports against one loaded table.
type Assembler struct {
	table *Table
	opts  AggregateOptions
}

func NewAssembler(table *Table, opts AggregateOptions) *Assembler {
	return &Assembler{table: table, opts: opts}
}

func (a *Assembler) Table() *Table { return a.table }

// Build filters the table once and runs metrics and aggregation on that
// same filtered view concurrently.
func (a *Assembler) Build(spec models.FilterSpec) (*models.Report, error) {
	return Build(a.table, spec, a.opts)
}

// BuildWith is Build with per-call ranking limits.
func (a *Assembler) BuildWith(spec models.FilterSpec, opts AggregateOptions) (*models.Report, error) {
	return Build(a.table, spec, opts)
}

// Build is the one-shot form of Assembler.Build.
func Build(table *Table, spec models.FilterSpec, opts AggregateOptions) (*models.Report, error) {
	view := Filter(table, spec)

	var report models.Report
	var g errgroup.Group
	g.Go(func() error {
		report.Metrics = ComputeMetrics(view)
		return nil
	})
	g.Go(func() error {
		agg, err := Aggregate(view, opts)
		if err != nil {
			return err
		}
		report.Aggregates = agg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &report, nil
}
