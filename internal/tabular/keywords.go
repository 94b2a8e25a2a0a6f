package tabular

import "strings"

// DefaultKeywords mark a query as quantitative. Matching is case-insensitive substring matching.
var DefaultKeywords = []string{
	"how many", "count", "total", "sum", "average", "mean", "median",
	"maximum", "minimum", "max", "min", "filter", "where", "group by",
	"sort", "rank", "top", "bottom", "percentage", "percent", "%",
	"calculate", "compute", "aggregate", "distinct", "unique",
	"greater than", "less than", "between", "equal to", "not equal",
	"rows", "columns", "cells", "values", "data points",
	"excel", "spreadsheet", "sheet", "worksheet",
}

func matchesKeyword(query string, keywords []string) bool {
	q := strings.ToLower(query)
	for _, k := range keywords {
		if k != "" && strings.Contains(q, k) {
			return true
		}
	}
	return false
}
