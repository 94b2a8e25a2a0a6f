package tabular

import (
	"fmt"
	"math"
	"strings"

	"gopherai-docqa/internal/render"
)

const (
	sampleRows      = 5
	maxListedValues = 10
)

type ColumnSummary struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Min    *float64   `json:"min,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	Mean   *float64   `json:"mean,omitempty"`
	Unique int        `json:"unique"`
	Values []string   `json:"values,omitempty"`
}

type Summary struct {
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
}

// Summarize reports per-column statistics: min/max/mean for numeric columns and, for text
// columns with few distinct values, the values themselves.
func Summarize(t *Table) Summary {
	s := Summary{Name: t.Name, Rows: len(t.Rows), Columns: make([]ColumnSummary, len(t.Columns))}
	for i, c := range t.Columns {
		cs := ColumnSummary{Name: c.Name, Type: c.Type}
		var distinct []string
		seen := map[string]struct{}{}
		var sum float64
		var n int
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range t.Rows {
			cell := row[i]
			if cell == "" {
				continue
			}
			if _, ok := seen[cell]; !ok {
				seen[cell] = struct{}{}
				distinct = append(distinct, cell)
			}
			if c.Type == TypeNumber {
				if v, ok := ParseNumber(cell); ok {
					sum += v
					n++
					lo = math.Min(lo, v)
					hi = math.Max(hi, v)
				}
			}
		}
		cs.Unique = len(distinct)
		if n > 0 {
			mean := roundTo(sum/float64(n), 2)
			cs.Min, cs.Max, cs.Mean = &lo, &hi, &mean
		}
		if c.Type == TypeText && len(distinct) <= maxListedValues {
			cs.Values = distinct
		}
		s.Columns[i] = cs
	}
	return s
}

// Describe renders the summary plus a sample of rows as prompt context.
func Describe(t *Table) string {
	s := Summarize(t)
	var b strings.Builder
	fmt.Fprintf(&b, "[Table: %s]\n", s.Name)
	fmt.Fprintf(&b, "Total Rows: %d\n", s.Rows)
	b.WriteString("Columns:\n")
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "  - %s (%s): %d unique values", c.Name, c.Type, c.Unique)
		if c.Min != nil {
			fmt.Fprintf(&b, "; min %s, max %s, mean %s", FormatNumber(*c.Min), FormatNumber(*c.Max), FormatNumber(*c.Mean))
		}
		if len(c.Values) > 0 {
			fmt.Fprintf(&b, "; values: %s", strings.Join(c.Values, ", "))
		}
		b.WriteString("\n")
	}
	n := sampleRows
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	fmt.Fprintf(&b, "Sample Data (first %d rows):\n", n)
	b.WriteString(render.Table(t.ColumnNames(), t.Rows[:n]))
	return b.String()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
