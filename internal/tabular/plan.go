package tabular

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopherai-docqa/internal/render"
)

var ErrInvalidPlan = errors.New("invalid query plan")

// Plan is a read-only query over one table. Filters apply first, then grouping and
// aggregation (or column selection), then sort and limit.
type Plan struct {
	Filters    []Filter    `json:"filters,omitempty"`
	GroupBy    []string    `json:"group_by,omitempty"`
	Aggregates []Aggregate `json:"aggregates,omitempty"`
	Select     []string    `json:"select,omitempty"`
	Distinct   bool        `json:"distinct,omitempty"`
	Sort       []SortKey   `json:"sort,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// Filter compares a column with Value. Op is one of ==, !=, >, >=, <, <=, contains,
// not_contains, startswith, in, not_in. Value may be a string, number or list (for in).
type Filter struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

// Aggregate applies Func (count, sum, avg, mean, median, min, max, nunique) to Column.
// count with an empty column or "*" counts rows.
type Aggregate struct {
	Func   string `json:"func"`
	Column string `json:"column,omitempty"`
	As     string `json:"as,omitempty"`
}

type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

type Result struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	// Total is the row count before Limit.
	Total int `json:"total"`
}

// Markdown renders at most maxRows rows; maxRows <= 0 renders all.
func (r *Result) Markdown(maxRows int) string {
	rows := r.Rows
	note := ""
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
		note = fmt.Sprintf("\n\n(showing %d of %d rows)", maxRows, len(r.Rows))
	} else if r.Total > len(r.Rows) {
		note = fmt.Sprintf("\n\n(showing %d of %d rows)", len(r.Rows), r.Total)
	}
	return render.Table(r.Columns, rows) + note
}

// Evaluate runs p against t. Unknown columns, operators and functions are plan errors.
func Evaluate(t *Table, p Plan) (*Result, error) {
	rows, err := applyFilters(t, p.Filters)
	if err != nil {
		return nil, err
	}

	var res *Result
	if len(p.GroupBy) > 0 || len(p.Aggregates) > 0 {
		res, err = aggregate(t, rows, p.GroupBy, p.Aggregates)
	} else {
		res, err = project(t, rows, p.Select, p.Distinct)
	}
	if err != nil {
		return nil, err
	}

	if err := sortResult(res, p.Sort); err != nil {
		return nil, err
	}
	res.Total = len(res.Rows)
	if p.Limit > 0 && len(res.Rows) > p.Limit {
		res.Rows = res.Rows[:p.Limit]
	}
	return res, nil
}

func column(t *Table, name string) (int, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown column %q (columns: %s)", ErrInvalidPlan, name, strings.Join(t.ColumnNames(), ", "))
	}
	return idx, nil
}

func applyFilters(t *Table, filters []Filter) ([][]string, error) {
	type compiled struct {
		col  int
		pred func(string) bool
	}
	preds := make([]compiled, 0, len(filters))
	for _, f := range filters {
		col, err := column(t, f.Column)
		if err != nil {
			return nil, err
		}
		pred, err := predicate(f.Op, f.Value)
		if err != nil {
			return nil, err
		}
		preds = append(preds, compiled{col: col, pred: pred})
	}

	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		keep := true
		for _, p := range preds {
			if !p.pred(row[p.col]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

func predicate(op string, value any) (func(string) bool, error) {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "in", "not_in":
		set := map[string]struct{}{}
		list, ok := value.([]any)
		if !ok {
			list = []any{value}
		}
		for _, v := range list {
			set[strings.ToLower(valueString(v))] = struct{}{}
		}
		return func(cell string) bool {
			_, hit := set[strings.ToLower(cell)]
			if !hit {
				if n, ok := ParseNumber(cell); ok {
					_, hit = set[FormatNumber(n)]
				}
			}
			return hit == (op == "in")
		}, nil
	}

	want := valueString(value)
	lowerWant := strings.ToLower(want)
	switch op {
	case "==", "=", "eq", "equals":
		return func(cell string) bool { return compare(cell, want) == 0 }, nil
	case "!=", "<>", "ne", "not_equals":
		return func(cell string) bool { return compare(cell, want) != 0 }, nil
	case ">", "gt":
		return func(cell string) bool { return cell != "" && compare(cell, want) > 0 }, nil
	case ">=", "gte":
		return func(cell string) bool { return cell != "" && compare(cell, want) >= 0 }, nil
	case "<", "lt":
		return func(cell string) bool { return cell != "" && compare(cell, want) < 0 }, nil
	case "<=", "lte":
		return func(cell string) bool { return cell != "" && compare(cell, want) <= 0 }, nil
	case "contains":
		return func(cell string) bool { return strings.Contains(strings.ToLower(cell), lowerWant) }, nil
	case "not_contains":
		return func(cell string) bool { return !strings.Contains(strings.ToLower(cell), lowerWant) }, nil
	case "startswith", "starts_with":
		return func(cell string) bool { return strings.HasPrefix(strings.ToLower(cell), lowerWant) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidPlan, op)
	}
}

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return FormatNumber(x)
	case int:
		return FormatNumber(float64(x))
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// compare orders numerically when both sides are numbers, otherwise case-insensitively as text.
func compare(a, b string) int {
	if x, ok := ParseNumber(a); ok {
		if y, ok := ParseNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func project(t *Table, rows [][]string, selected []string, distinct bool) (*Result, error) {
	cols := make([]int, 0, len(selected))
	names := make([]string, 0, len(selected))
	if len(selected) == 0 {
		for i, c := range t.Columns {
			cols = append(cols, i)
			names = append(names, c.Name)
		}
	}
	for _, name := range selected {
		idx, err := column(t, name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, idx)
		names = append(names, t.Columns[idx].Name)
	}

	seen := map[string]struct{}{}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		picked := make([]string, len(cols))
		for i, c := range cols {
			picked[i] = row[c]
		}
		if distinct {
			key := strings.Join(picked, "\x00")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, picked)
	}
	return &Result{Columns: names, Rows: out}, nil
}

type aggColumn struct {
	fn   string
	col  int
	rows bool
	name string
}

func aggregate(t *Table, rows [][]string, groupBy []string, aggs []Aggregate) (*Result, error) {
	keys := make([]int, len(groupBy))
	names := make([]string, 0, len(groupBy)+len(aggs))
	for i, g := range groupBy {
		idx, err := column(t, g)
		if err != nil {
			return nil, err
		}
		keys[i] = idx
		names = append(names, t.Columns[idx].Name)
	}

	outCols := make([]aggColumn, 0, len(aggs))
	for _, a := range aggs {
		fn := strings.ToLower(strings.TrimSpace(a.Func))
		switch fn {
		case "count", "sum", "avg", "mean", "median", "min", "max", "nunique":
		default:
			return nil, fmt.Errorf("%w: unknown aggregate %q", ErrInvalidPlan, a.Func)
		}
		col := aggColumn{fn: fn}
		if fn == "count" && (a.Column == "" || a.Column == "*") {
			col.rows = true
		} else {
			idx, err := column(t, a.Column)
			if err != nil {
				return nil, err
			}
			col.col = idx
		}
		col.name = a.As
		if col.name == "" {
			if col.rows {
				col.name = "count"
			} else {
				col.name = fn + "_" + t.Columns[col.col].Name
			}
		}
		outCols = append(outCols, col)
		names = append(names, col.name)
	}
	if len(outCols) == 0 {
		outCols = append(outCols, aggColumn{fn: "count", rows: true, name: "count"})
		names = append(names, "count")
	}

	var order []string
	groups := map[string][][]string{}
	if len(keys) == 0 {
		order = []string{""}
		groups[""] = rows
	} else {
		for _, row := range rows {
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = row[k]
			}
			key := strings.Join(parts, "\x00")
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], row)
		}
	}

	out := make([][]string, 0, len(order))
	for _, key := range order {
		members := groups[key]
		row := make([]string, 0, len(names))
		for _, k := range keys {
			row = append(row, members[0][k])
		}
		for _, s := range outCols {
			row = append(row, s.apply(members))
		}
		out = append(out, row)
	}
	return &Result{Columns: names, Rows: out}, nil
}

func (s aggColumn) apply(rows [][]string) string {
	if s.rows {
		return FormatNumber(float64(len(rows)))
	}

	var nums []float64
	var texts []string
	for _, row := range rows {
		cell := row[s.col]
		if cell == "" {
			continue
		}
		texts = append(texts, cell)
		if v, ok := ParseNumber(cell); ok {
			nums = append(nums, v)
		}
	}

	switch s.fn {
	case "count":
		return FormatNumber(float64(len(texts)))
	case "nunique":
		set := map[string]struct{}{}
		for _, v := range texts {
			set[v] = struct{}{}
		}
		return FormatNumber(float64(len(set)))
	case "min", "max":
		if len(texts) == 0 {
			return ""
		}
		if len(nums) == len(texts) {
			best := nums[0]
			for _, v := range nums[1:] {
				if (s.fn == "min" && v < best) || (s.fn == "max" && v > best) {
					best = v
				}
			}
			return FormatNumber(best)
		}
		best := texts[0]
		for _, v := range texts[1:] {
			c := compare(v, best)
			if (s.fn == "min" && c < 0) || (s.fn == "max" && c > 0) {
				best = v
			}
		}
		return best
	}

	if len(nums) == 0 {
		if s.fn == "sum" {
			return "0"
		}
		return ""
	}
	var sum float64
	for _, v := range nums {
		sum += v
	}
	switch s.fn {
	case "sum":
		return FormatNumber(sum)
	case "avg", "mean":
		return FormatNumber(sum / float64(len(nums)))
	default: // median
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return FormatNumber(sorted[mid])
		}
		return FormatNumber((sorted[mid-1] + sorted[mid]) / 2)
	}
}

func sortResult(res *Result, keys []SortKey) error {
	if len(keys) == 0 {
		return nil
	}
	idx := make([]int, len(keys))
	for i, k := range keys {
		found := -1
		for j, c := range res.Columns {
			if c == k.Column || strings.EqualFold(c, strings.TrimSpace(k.Column)) {
				found = j
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("%w: cannot sort by %q (result columns: %s)", ErrInvalidPlan, k.Column, strings.Join(res.Columns, ", "))
		}
		idx[i] = found
	}
	sort.SliceStable(res.Rows, func(a, b int) bool {
		for i, k := range keys {
			c := compareForSort(res.Rows[a][idx[i]], res.Rows[b][idx[i]])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

// compareForSort places empty cells last in ascending order.
func compareForSort(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return compare(a, b)
}
