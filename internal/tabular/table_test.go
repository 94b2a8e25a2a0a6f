package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/pkg/sheetextract"
)

func TestNewTable_SingleSheet(t *testing.T) {
	tbl := salesTable(t)

	assert.Equal(t, "sales.xlsx", tbl.Name)
	assert.Equal(t, []Column{{Name: "region", Type: TypeText}, {Name: "total", Type: TypeNumber}}, tbl.Columns)
	assert.Len(t, tbl.Rows, 4)
	assert.Equal(t, "sales", tbl.Stem())
}

func TestNewTable_MultipleSheetsAddSheetColumn(t *testing.T) {
	tbl, err := NewTable("budget.xlsx", []sheetextract.Sheet{
		{Name: "Q1", Rows: [][]string{{"dept", "spend"}, {"ops", "10"}}},
		{Name: "Q2", Rows: [][]string{{"dept", "spend", "note"}, {"hr", "7", "late"}}},
		{Name: "Empty"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"dept", "spend", "note", SheetColumn}, tbl.ColumnNames())
	assert.Equal(t, [][]string{
		{"ops", "10", "", "Q1"},
		{"hr", "7", "late", "Q2"},
	}, tbl.Rows)
}

func TestNewTable_HeaderCleanup(t *testing.T) {
	tbl, err := FromRows("x.csv", []string{"a", "", "a"}, [][]string{{"1", "2", "3", "ignored"}, {"4"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1"}, tbl.ColumnNames())
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "", ""}}, tbl.Rows)
}

func TestNewTable_Empty(t *testing.T) {
	_, err := NewTable("e.xlsx", []sheetextract.Sheet{{Name: "s", Rows: [][]string{{"only", "header"}}}})
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable("e.xlsx", nil)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestParseAndFormatNumber(t *testing.T) {
	for in, want := range map[string]float64{"1,200": 1200, "$3.5": 3.5, "45%": 45, "-2": -2} {
		got, ok := ParseNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "NaN", "inf"} {
		_, ok := ParseNumber(in)
		assert.False(t, ok, in)
	}
	assert.Equal(t, "350", FormatNumber(350))
	assert.Equal(t, "116.6667", FormatNumber(350.0/3))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "sales", Stem("Sales.XLSX"))
	assert.Equal(t, "q3 report", Stem("Q3 Report.xls"))
	assert.Equal(t, "invoice", Stem("invoice.pdf (table 2)"))
}
