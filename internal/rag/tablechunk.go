package rag

import (
	"regexp"
	"strings"
)

const (
	TableStart = "----- TABLE -----"
	TableEnd   = "----- END TABLE -----"

	DefaultMaxTableRows = 50
)

var tableBlockPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(TableStart) + `\n(.*?)\n` + regexp.QuoteMeta(TableEnd))

// TableChunker merges adjacent table blocks and re-splits them into bounded row groups.
type TableChunker struct {
	maxRows int
}

func NewTableChunker(maxRows int) *TableChunker {
	if maxRows <= 0 {
		maxRows = DefaultMaxTableRows
	}
	return &TableChunker{maxRows: maxRows}
}

type segment struct {
	table bool
	text  string
	rows  []string
}

// Process returns a new document whose table blocks are merged and capped at maxRows rows each.
// Documents without table sentinels are returned unchanged.
func (c *TableChunker) Process(doc Document) Document {
	segments, ok := scanSegments(doc.Content)
	if !ok {
		return doc
	}

	var parts []string
	var pending []string
	flush := func() {
		for i := 0; i < len(pending); i += c.maxRows {
			end := i + c.maxRows
			if end > len(pending) {
				end = len(pending)
			}
			parts = append(parts, WrapTable(pending[i:end]))
		}
		pending = nil
	}

	for _, seg := range segments {
		if seg.table {
			pending = append(pending, seg.rows...)
			continue
		}
		flush()
		parts = append(parts, seg.text)
	}
	flush()

	return Document{
		Content:  strings.Join(parts, "\n\n"),
		Metadata: doc.Metadata.clone(),
	}
}

func (c *TableChunker) ProcessAll(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, c.Process(doc))
	}
	return out
}

// LogicalTables returns the row sequences of every logical table in content.
// Table blocks separated only by whitespace form one logical table.
func LogicalTables(content string) [][]string {
	segments, ok := scanSegments(content)
	if !ok {
		return nil
	}
	var tables [][]string
	var current []string
	for _, seg := range segments {
		if seg.table {
			current = append(current, seg.rows...)
			continue
		}
		if len(current) > 0 {
			tables = append(tables, current)
			current = nil
		}
	}
	if len(current) > 0 {
		tables = append(tables, current)
	}
	return tables
}

func WrapTable(rows []string) string {
	return TableStart + "\n" + strings.Join(rows, "\n") + "\n" + TableEnd
}

// scanSegments splits content into text and table segments. Whitespace-only text is dropped.
func scanSegments(content string) ([]segment, bool) {
	matches := tableBlockPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil, false
	}

	segments := make([]segment, 0, 2*len(matches)+1)
	lastEnd := 0
	for _, m := range matches {
		if before := strings.TrimSpace(content[lastEnd:m[0]]); before != "" {
			segments = append(segments, segment{text: before})
		}
		segments = append(segments, segment{table: true, rows: tableRows(content[m[2]:m[3]])})
		lastEnd = m[1]
	}
	if after := strings.TrimSpace(content[lastEnd:]); after != "" {
		segments = append(segments, segment{text: after})
	}
	return segments, true
}

func tableRows(body string) []string {
	lines := strings.Split(body, "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}
	return rows
}
