package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"salesdash/internal/models"
)

var (
	// ErrMalformedRow is matched by every *RowError.
	ErrMalformedRow  = errors.New("malformed row")
	ErrMissingColumn = errors.New("missing required column")
)

// RowError reports a field that could not be parsed. Loading stops on the
// first one; a bad price or date is never coerced to zero.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func (e *RowError) Is(target error) bool { return target == ErrMalformedRow }

// Accepted InvoiceDate layouts, tried in order.
var dateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

type column int

const (
	colInvoice column = iota
	colStockCode
	colDescription
	colQuantity
	colDate
	colPrice
	colCustomer
	colCountry
	numColumns
)

var columnNames = [numColumns]string{"InvoiceNo", "StockCode", "Description", "Quantity", "InvoiceDate", "UnitPrice", "CustomerID", "Country"}

// Header aliases, lower-cased with separators removed.
var columnAliases = map[string]column{
	"invoiceno":   colInvoice,
	"invoice":     colInvoice,
	"invoiceid":   colInvoice,
	"stockcode":   colStockCode,
	"description": colDescription,
	"product":     colDescription,
	"quantity":    colQuantity,
	"invoicedate": colDate,
	"date":        colDate,
	"unitprice":   colPrice,
	"price":       colPrice,
	"customerid":  colCustomer,
	"customer":    colCustomer,
	"country":     colCountry,
}

// StockCode and CustomerID may be absent from the file.
var optionalColumns = map[column]bool{colStockCode: true, colCustomer: true}

type LoadOptions struct {
	// Workers parsing rows in parallel. Zero means runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// LoadFile reads a sales CSV from path. See Load.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return Load(ctx, f, opts)
}

// Load parses a sales CSV with a header row. Columns are matched by name,
// so their order does not matter. The whole load fails on the first
// unparseable row.
func Load(ctx context.Context, r io.Reader, opts LoadOptions) (*Table, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	// A. Read records sequentially, remembering source lines for errors.
	var records [][]string
	var lines []int
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	// B. Parse chunks in parallel into a preallocated slice.
	rows := make([]models.Transaction, len(records))
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(records) {
		numWorkers = max(len(records), 1)
	}
	chunkSize := (len(records) + numWorkers - 1) / numWorkers

	chunkErrs := make([]error, numWorkers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		s := w * chunkSize
		e := min(s+chunkSize, len(records))
		g.Go(func() error {
			for j := s; j < e; j++ {
				if j%4096 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				tx, err := parseRecord(records[j], idx, lines[j])
				if err != nil {
					chunkErrs[w] = err
					return err
				}
				rows[j] = tx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Prefer a row error over the cancellation it caused in other chunks.
		for _, cerr := range chunkErrs {
			if cerr != nil {
				return nil, cerr
			}
		}
		return nil, err
	}

	logger.Info("dataset loaded", "rows", len(rows), "workers", numWorkers, "elapsed", time.Since(start))
	return &Table{rows: rows}, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer("_", "", " ", "", "\ufeff", "").Replace(key)
		if c, ok := columnAliases[key]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	for c, i := range idx {
		if i < 0 && !optionalColumns[column(c)] {
			return idx, fmt.Errorf("%w: %s", ErrMissingColumn, columnNames[c])
		}
	}
	return idx, nil
}

func parseRecord(rec []string, idx [numColumns]int, line int) (models.Transaction, error) {
	field := func(c column) string {
		if idx[c] < 0 {
			return ""
		}
		return strings.TrimSpace(rec[idx[c]])
	}
	bad := func(c column, err error) error {
		return &RowError{Line: line, Column: columnNames[c], Value: field(c), Err: err}
	}

	tx := models.Transaction{
		InvoiceID:   field(colInvoice),
		StockCode:   field(colStockCode),
		Description: field(colDescription),
		Country:     field(colCountry),
	}
	if tx.InvoiceID == "" {
		return tx, bad(colInvoice, errors.New("empty"))
	}

	qty, err := strconv.ParseInt(field(colQuantity), 10, 64)
	if err != nil {
		return tx, bad(colQuantity, err)
	}
	tx.Quantity = qty

	price, err := decimal.NewFromString(field(colPrice))
	if err != nil {
		return tx, bad(colPrice, err)
	}
	tx.UnitPrice = price

	date, err := parseDate(field(colDate))
	if err != nil {
		return tx, bad(colDate, err)
	}
	tx.InvoiceDate = date

	if id := normalizeCustomerID(field(colCustomer)); id != "" {
		tx.CustomerID = &id
	}
	return tx, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date format")
}

// normalizeCustomerID folds the float renderings spreadsheet exports give
// numeric IDs ("17850.0", "17850.00", "1.785e4") back to "17850". IDs
// without a fraction or exponent are kept verbatim, leading zeros included.
func normalizeCustomerID(s string) string {
	if strings.EqualFold(s, "nan") {
		return ""
	}
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return d.BigInt().String()
	}
	return s
}
