package tabular

import (
	"fmt"
	"regexp"
	"strings"

	"gopherai-docqa/internal/rag"
)

var wideGap = regexp.MustCompile(`\s{2,}`)

// TablesFromDocument turns every logical table block in doc into a Table named after the
// document source. Later tables from the same source are named "<source> (table N)".
// Blocks with fewer than two rows or two columns are ignored.
func TablesFromDocument(doc rag.Document) []*Table {
	source := doc.Metadata.SourceName()
	var out []*Table
	for _, rows := range rag.LogicalTables(doc.Content) {
		if len(rows) < 2 {
			continue
		}
		cells := make([][]string, len(rows))
		for i, r := range rows {
			cells[i] = splitCells(r)
		}
		if len(cells[0]) < 2 {
			continue
		}
		name := source
		if len(out) > 0 {
			name = fmt.Sprintf("%s (table %d)", source, len(out)+1)
		}
		t, err := FromRows(name, cells[0], cells[1:])
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// splitCells prefers tabs, then pipes, then runs of two or more spaces.
func splitCells(row string) []string {
	var parts []string
	switch {
	case strings.Contains(row, "\t"):
		parts = strings.Split(row, "\t")
	case strings.Contains(row, "|"):
		parts = strings.Split(strings.Trim(strings.TrimSpace(row), "|"), "|")
	default:
		parts = wideGap.Split(strings.TrimSpace(row), -1)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
