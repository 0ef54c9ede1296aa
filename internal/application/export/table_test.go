package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 4, 5, 120_000_000, time.FixedZone("IST", 19800))
	assert.Equal(t, "2024-03-05T04:34:05.120Z", Timestamp(ts))
	assert.Empty(t, Timestamp(time.Time{}))
}

func TestTable_CSVAllQuoted(t *testing.T) {
	tbl := Table{
		Headers: []string{"A", "B"},
		Rows: [][]any{
			{"x", decimal.NewFromInt(5)},
			{`say "hi"`, 1.5},
		},
	}
	assert.Equal(t, "A,B\n\"x\",\"5\"\n\"say \"\"hi\"\"\",\"1.5\"", tbl.CSVAllQuoted())
}

func TestTable_CSVAllQuoted_Empty(t *testing.T) {
	tbl := Table{Headers: []string{"A", "B"}}
	assert.Equal(t, "A,B", tbl.CSVAllQuoted())
}

func TestTable_CSVQuoteStrings(t *testing.T) {
	tbl := Table{
		Headers: []string{"name", "count", "ok"},
		Rows:    [][]any{{"plot", 3, true}},
	}
	assert.Equal(t, "name,count,ok\n\"plot\",3,true", tbl.CSVQuoteStrings())
}

func TestTable_WriteXLSX(t *testing.T) {
	tbl := Table{
		Sheet:   "Plots",
		Headers: []string{"ID", "Amount"},
		Rows:    [][]any{{"plot-001", decimal.NewFromInt(1200)}},
	}

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Plots"}, f.GetSheetList())
	rows, err := f.GetRows("Plots")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Amount"}, {"plot-001", "1200"}}, rows)
}
