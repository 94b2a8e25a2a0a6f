package tabular

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gopherai-docqa/internal/pkg/sheetextract"
)

type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeText   ColumnType = "text"

	SheetColumn = "_sheet_name"
)

var ErrEmptyTable = errors.New("table has no data rows")

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an immutable structured table. Every row has len(Columns) cells.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]string
}

// NewTable builds a table from spreadsheet sheets whose first row is a header. Columns are the
// union of every sheet's headers in first-seen order; with more than one sheet a _sheet_name
// column records each row's origin.
func NewTable(name string, sheets []sheetextract.Sheet) (*Table, error) {
	var nonEmpty []sheetextract.Sheet
	for _, s := range sheets {
		if len(s.Rows) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	multi := len(nonEmpty) > 1

	var names []string
	position := map[string]int{}
	headers := make([][]string, len(nonEmpty))
	for i, s := range nonEmpty {
		headers[i] = headerNames(s.Rows[0])
		for _, h := range headers[i] {
			if _, ok := position[h]; !ok {
				position[h] = len(names)
				names = append(names, h)
			}
		}
	}
	if multi {
		if _, ok := position[SheetColumn]; !ok {
			position[SheetColumn] = len(names)
			names = append(names, SheetColumn)
		}
	}

	var rows [][]string
	for i, s := range nonEmpty {
		for _, raw := range s.Rows[1:] {
			row := make([]string, len(names))
			for j, cell := range raw {
				if j < len(headers[i]) {
					row[position[headers[i][j]]] = strings.TrimSpace(cell)
				}
			}
			if multi {
				row[position[SheetColumn]] = s.Name
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	return newTable(name, names, rows), nil
}

// FromRows builds a table from a header and data rows already split into cells.
func FromRows(name string, header []string, data [][]string) (*Table, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	names := headerNames(header)
	rows := make([][]string, len(data))
	for i, raw := range data {
		row := make([]string, len(names))
		for j := 0; j < len(raw) && j < len(names); j++ {
			row[j] = strings.TrimSpace(raw[j])
		}
		rows[i] = row
	}
	return newTable(name, names, rows), nil
}

func newTable(name string, names []string, rows [][]string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: inferType(rows, i)}
	}
	return &Table{Name: name, Columns: cols, Rows: rows}
}

// headerNames fills blank headers and de-duplicates repeats with a numeric suffix.
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

func inferType(rows [][]string, col int) ColumnType {
	numeric := false
	for _, row := range rows {
		if row[col] == "" {
			continue
		}
		if _, ok := ParseNumber(row[col]); !ok {
			return TypeText
		}
		numeric = true
	}
	if numeric {
		return TypeNumber
	}
	return TypeText
}

// Stem is the lower-cased table name without its file extension.
func (t *Table) Stem() string {
	return Stem(t.Name)
}

func Stem(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(lower, filepath.Ext(lower))
}

// ColumnIndex resolves a column by exact name, then case-insensitively.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ParseNumber accepts plain numbers plus thousands separators, currency symbols and a trailing percent sign.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "%", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatNumber prints integers without a fraction and other values rounded to four decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
