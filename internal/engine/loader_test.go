package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLoad = LoadOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

const retailCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850.0,United Kingdom
536365,71053,"LANTERN, WHITE METAL",6,12/1/2010 8:26,3.39,17850.0,United Kingdom
C536379,D,Discount,-1,12/1/2010 9:41,27.50,,United Kingdom
536370,22728,ALARM CLOCK BAKELIKE PINK,24,12/1/2010 8:45,3.75,12583.0,France
`

func TestLoad_RetailExport(t *testing.T) {
	table, err := Load(context.Background(), strings.NewReader(retailCSV), quietLoad)
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	first := table.Row(0)
	assert.Equal(t, "536365", first.InvoiceID)
	assert.Equal(t, "85123A", first.StockCode)
	assert.Equal(t, int64(6), first.Quantity)
	assertDecimal(t, "2.55", first.UnitPrice)
	assertDecimal(t, "15.30", first.LineAmount())
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), first.InvoiceDate)
	require.NotNil(t, first.CustomerID)
	assert.Equal(t, "17850", *first.CustomerID)

	assert.Equal(t, "LANTERN, WHITE METAL", table.Row(1).Description)

	refund := table.Row(2)
	assert.Equal(t, int64(-1), refund.Quantity)
	assert.Nil(t, refund.CustomerID)

	assert.Equal(t, "France", table.Row(3).Country)
}

func TestLoad_ColumnOrderAndAliases(t *testing.T) {
	csv := "country,customer_id,invoice_date,price,quantity,description,invoice\n" +
		"US,10,2021-01-05,5,2,A,1\n"
	table, err := Load(context.Background(), strings.NewReader(csv), quietLoad)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "US", table.Row(0).Country)
	assert.Equal(t, "A", table.Row(0).Description)
	assert.Equal(t, day("2021-01-05"), table.Row(0).InvoiceDate)
}

func TestLoad_MissingColumn(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("InvoiceNo,Description,Quantity\n1,A,2\n"), quietLoad)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoad_MalformedRowsFailLoudly(t *testing.T) {
	header := "InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,Country\n"
	cases := []struct {
		name   string
		row    string
		column string
	}{
		{"bad quantity", "1,A,two,2021-01-05,5,US", "Quantity"},
		{"bad price", "1,A,2,2021-01-05,five,US", "UnitPrice"},
		{"bad date", "1,A,2,05.01.2021,5,US", "InvoiceDate"},
		{"missing invoice", ",A,2,2021-01-05,5,US", "InvoiceNo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := header + "1,OK,1,2021-01-01,1,US\n" + tc.row + "\n"
			_, err := Load(context.Background(), strings.NewReader(body), quietLoad)
			require.ErrorIs(t, err, ErrMalformedRow)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 3, rowErr.Line)
			assert.Equal(t, tc.column, rowErr.Column)
		})
	}
}

func TestLoad_ParallelKeepsRowOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString("InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,Country\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "%d,P%d,%d,2021-01-05,1.5,US\n", i, i, i+1)
	}
	opts := quietLoad
	opts.Workers = 7
	table, err := Load(context.Background(), strings.NewReader(b.String()), opts)
	require.NoError(t, err)
	require.Equal(t, 500, table.Len())
	for i := 0; i < 500; i++ {
		assert.Equal(t, fmt.Sprint(i), table.Row(i).InvoiceID)
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	table, err := Load(context.Background(), strings.NewReader("InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,Country\n"), quietLoad)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecommerce_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(retailCSV), 0o600))

	table, err := LoadFile(context.Background(), path, quietLoad)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), quietLoad)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNormalizeCustomerID(t *testing.T) {
	cases := map[string]string{
		"17850":    "17850",
		"17850.0":  "17850",
		"17850.00": "17850",
		"1.7850e4": "17850",
		"1.785E4":  "17850",
		"00123":    "00123",
		"C-17850":  "C-17850",
		"17850.5":  "17850.5",
		"NaN":      "",
		"":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeCustomerID(in), "input %q", in)
	}
}

func TestLoad_CustomerExportsShareOneKey(t *testing.T) {
	csv := "InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
		"1,A,1,2021-01-05,5,17850.0,UK\n" +
		"2,A,1,2021-01-06,5,17850.00,UK\n" +
		"3,A,1,2021-01-07,5,1.7850e4,UK\n"
	table, err := Load(context.Background(), strings.NewReader(csv), quietLoad)
	require.NoError(t, err)

	res, err := Aggregate(table, DefaultAggregateOptions())
	require.NoError(t, err)
	require.Len(t, res.TopCustomers, 1)
	assert.Equal(t, "17850", res.TopCustomers[0].CustomerID)
	assertDecimal(t, "15", res.TopCustomers[0].Sales)
}
