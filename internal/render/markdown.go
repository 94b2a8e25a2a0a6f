package render

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	columnGap      = regexp.MustCompile(`\s{2,}`)
	headerPattern  = regexp.MustCompile(`^[\w_]+(\s{2,}[\w_%.]+){2,}`)
	indentedHeader = regexp.MustCompile(`^(\s+[\w_%.]+){2,}`)
)

// Table renders columns and rows as a markdown table. Columns whose values all parse as
// numbers are right-aligned, the rest left-aligned. Short rows are padded; pipes are escaped.
func Table(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	width := len(columns)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	header := pad(columns, width)

	var b strings.Builder
	writeRow(&b, header)
	seps := make([]string, width)
	for col := range seps {
		if numericColumn(rows, col) {
			seps[col] = "---:"
		} else {
			seps[col] = ":---"
		}
	}
	writeRow(&b, seps)
	for _, row := range rows {
		writeRow(&b, pad(row, width))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTextTables rewrites whitespace-aligned tables (as printed by dataframe libraries) into
// markdown. Text that already contains markdown table syntax is returned unchanged.
func FormatTextTables(text string) string {
	if text == "" || (strings.Contains(text, "|") && strings.Contains(text, "---")) {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		line := lines[i]
		if !headerPattern.MatchString(strings.TrimSpace(line)) && !indentedHeader.MatchString(line) {
			out = append(out, line)
			i++
			continue
		}

		start := i
		var block []string
		for i < len(lines) {
			cur := lines[i]
			if strings.TrimSpace(cur) == "" || len(splitColumns(cur)) < 2 {
				break
			}
			block = append(block, cur)
			i++
		}
		if len(block) >= 2 {
			if md := textTable(block); md != "" {
				out = append(out, md)
				continue
			}
		}
		if i == start {
			// header-looking line with a single column
			out = append(out, line)
			i++
			continue
		}
		out = append(out, lines[start:i]...)
	}
	return strings.Join(out, "\n")
}

func textTable(block []string) string {
	rows := make([][]string, 0, len(block))
	width := 0
	for _, line := range block {
		parts := splitColumns(line)
		if len(parts) == 0 {
			continue
		}
		rows = append(rows, parts)
		if len(parts) > width {
			width = len(parts)
		}
	}
	if len(rows) == 0 || width < 2 {
		return ""
	}

	header := rows[0]
	// An indented header one cell short sits above a row-label column.
	if len(header) == width-1 && strings.TrimLeft(block[0], " \t") != block[0] {
		header = append([]string{"Index"}, header...)
	}
	return Table(header, rows[1:])
}

func splitColumns(line string) []string {
	raw := columnGap.Split(strings.TrimSpace(line), -1)
	parts := raw[:0]
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func numericColumn(rows [][]string, col int) bool {
	for _, row := range rows {
		if col >= len(row) {
			return false
		}
		v := strings.NewReplacer("%", "", ",", "").Replace(strings.TrimSpace(row[col]))
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

func pad(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}

func writeRow(b *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " ")
	}
	b.WriteString("| ")
	b.WriteString(strings.Join(escaped, " | "))
	b.WriteString(" |\n")
}
