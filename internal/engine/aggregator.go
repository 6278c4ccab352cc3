package engine

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/models"
)

var ErrInvalidLimit = errors.New("ranking limit must not be negative")

// Tables smaller than this per worker are aggregated on one goroutine.
const minRowsPerWorker = 50_000

type AggregateOptions struct {
	TopProducts  int
	TopCustomers int
	// Workers splits the table into chunks aggregated in parallel.
	// Zero picks a count from the table size and runtime.NumCPU().
	Workers int
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{TopProducts: 10, TopCustomers: 5}
}

// groupSum accumulates per-key totals, remembering first-seen key order.
type groupSum struct {
	index map[string]int
	keys  []string
	sums  []decimal.Decimal
}

func newGroupSum() *groupSum {
	return &groupSum{index: make(map[string]int)}
}

func (g *groupSum) add(key string, amount decimal.Decimal) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		g.sums = append(g.sums, decimal.Zero)
	}
	g.sums[i] = g.sums[i].Add(amount)
}

func (g *groupSum) merge(o *groupSum) {
	for i, k := range o.keys {
		g.add(k, o.sums[i])
	}
}

type partialAgg struct {
	months    [12]decimal.Decimal
	monthSeen [12]bool
	products  *groupSum
	regions   *groupSum
	customers *groupSum
	anon      decimal.Decimal
	anonSeen  bool
}

func newPartialAgg() *partialAgg {
	return &partialAgg{
		products:  newGroupSum(),
		regions:   newGroupSum(),
		customers: newGroupSum(),
	}
}

func (p *partialAgg) addRows(rows []models.Transaction) {
	for _, row := range rows {
		amt := row.LineAmount()

		m := row.InvoiceDate.Month() - 1
		p.months[m] = p.months[m].Add(amt)
		p.monthSeen[m] = true

		p.products.add(row.Description, amt)
		p.regions.add(row.Country, amt)

		if row.CustomerID == nil {
			p.anon = p.anon.Add(amt)
			p.anonSeen = true
		} else {
			p.customers.add(*row.CustomerID, amt)
		}
	}
}

func (p *partialAgg) merge(o *partialAgg) {
	for m := range p.months {
		p.months[m] = p.months[m].Add(o.months[m])
		p.monthSeen[m] = p.monthSeen[m] || o.monthSeen[m]
	}
	p.products.merge(o.products)
	p.regions.merge(o.regions)
	p.customers.merge(o.customers)
	p.anon = p.anon.Add(o.anon)
	p.anonSeen = p.anonSeen || o.anonSeen
}

// Aggregate computes the grouped and ranked views of table.
//
// Monthly buckets are keyed by month name only, so the same month of two
// different years lands in one bucket; they are emitted January first.
// Top products are the N largest by sales, returned smallest first.
// Region totals are in first-seen country order. Top customers are
// largest first, with guest sales ranked as one anonymous customer.
//
// Decimal sums are exact, so the chunked parallel pass returns exactly what
// a single sequential pass would.
func Aggregate(table *Table, opts AggregateOptions) (models.AggregationResult, error) {
	if opts.TopProducts < 0 || opts.TopCustomers < 0 {
		return models.AggregationResult{}, fmt.Errorf("%w: products=%d customers=%d",
			ErrInvalidLimit, opts.TopProducts, opts.TopCustomers)
	}

	n := table.Len()
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = min(runtime.NumCPU(), n/minRowsPerWorker)
	}
	numWorkers = max(min(numWorkers, n), 1)
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Partials are indexed by chunk and merged in chunk order so that
	// first-seen ordering survives the split.
	partials := make([]*partialAgg, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		s := min(w*chunkSize, n)
		e := min(s+chunkSize, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := newPartialAgg()
			p.addRows(table.rows[s:e])
			partials[w] = p
		}()
	}
	wg.Wait()

	total := partials[0]
	for _, p := range partials[1:] {
		total.merge(p)
	}

	return models.AggregationResult{
		MonthlyTrend: monthlyTrend(total),
		TopProducts:  topProducts(total.products, opts.TopProducts),
		RegionTotals: regionTotals(total.regions),
		TopCustomers: topCustomers(total, opts.TopCustomers),
	}, nil
}

func monthlyTrend(p *partialAgg) []models.MonthlyItem {
	out := make([]models.MonthlyItem, 0, 12)
	for m, seen := range p.monthSeen {
		if seen {
			out = append(out, models.MonthlyItem{Month: time.Month(m + 1).String(), Sales: p.months[m]})
		}
	}
	return out
}

func topProducts(g *groupSum, limit int) []models.ProductItem {
	out := make([]models.ProductItem, 0, len(g.keys))
	for i, k := range g.keys {
		out = append(out, models.ProductItem{Description: k, Sales: g.sums[i]})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		return out[i].Description < out[j].Description
	})
	if len(out) > limit {
		out = out[:limit]
	}
	// Smallest first, for a horizontal bar chart that grows downwards.
	slices.Reverse(out)
	return out
}

func regionTotals(g *groupSum) []models.RegionItem {
	out := make([]models.RegionItem, 0, len(g.keys))
	for i, k := range g.keys {
		out = append(out, models.RegionItem{Country: k, Sales: g.sums[i]})
	}
	return out
}

func topCustomers(p *partialAgg, limit int) []models.CustomerItem {
	out := make([]models.CustomerItem, 0, len(p.customers.keys)+1)
	for i, k := range p.customers.keys {
		out = append(out, models.CustomerItem{CustomerID: k, Sales: p.customers.sums[i]})
	}
	if p.anonSeen {
		out = append(out, models.CustomerItem{Anonymous: true, Sales: p.anon})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		if out[i].Anonymous != out[j].Anonymous {
			return out[j].Anonymous
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
