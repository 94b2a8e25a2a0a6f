package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	tableStart = "----- TABLE -----"
	tableEnd   = "----- END TABLE -----"

	// gap, in font-size units, that separates two table cells on one row
	cellGap = 1.5
	// gap below which two runs belong to the same word
	wordGap = 0.15
)

// Run is one positioned piece of text on a page row.
type Run struct {
	X, W     float64
	FontSize float64
	S        string
}

// ExtractText reads a PDF and returns its text page by page. Runs of two or more rows that
// split into the same number (>= 2) of widely spaced cells are emitted as tab-separated table
// blocks between "----- TABLE -----" sentinels.
// Returns empty string and nil error if the PDF has no extractable text.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read page %d failed: %w", i, err)
		}
		lines := make([][]Run, 0, len(rows))
		for _, row := range rows {
			runs := make([]Run, 0, len(row.Content))
			for _, t := range row.Content {
				runs = append(runs, Run{X: t.X, W: t.W, FontSize: t.FontSize, S: t.S})
			}
			lines = append(lines, runs)
		}
		if text := Layout(lines); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// Layout turns positioned rows into text, detecting aligned multi-cell rows as tables.
func Layout(rows [][]Run) string {
	var out []string
	var table [][]string
	flush := func() {
		if len(table) >= 2 {
			lines := make([]string, len(table))
			for i, cells := range table {
				lines[i] = strings.Join(cells, "\t")
			}
			out = append(out, "\n"+tableStart+"\n"+strings.Join(lines, "\n")+"\n"+tableEnd+"\n")
		} else {
			for _, cells := range table {
				out = append(out, strings.Join(cells, " "))
			}
		}
		table = nil
	}

	for _, runs := range rows {
		cells := splitCells(runs)
		if len(cells) == 0 {
			continue
		}
		if len(cells) >= 2 && (len(table) == 0 || len(table[0]) == len(cells)) {
			table = append(table, cells)
			continue
		}
		flush()
		if len(cells) >= 2 {
			table = append(table, cells)
			continue
		}
		out = append(out, cells[0])
	}
	flush()
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func splitCells(runs []Run) []string {
	sorted := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.S != "" {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var cur strings.Builder
	prevEnd := sorted[0].X
	for i, r := range sorted {
		size := r.FontSize
		if size <= 0 {
			size = 10
		}
		gap := r.X - prevEnd
		switch {
		case i == 0:
		case gap > cellGap*size:
			if s := strings.TrimSpace(cur.String()); s != "" {
				cells = append(cells, s)
			}
			cur.Reset()
		case gap > wordGap*size && !strings.HasSuffix(cur.String(), " ") && !strings.HasPrefix(r.S, " "):
			cur.WriteByte(' ')
		}
		cur.WriteString(r.S)
		prevEnd = r.X + r.W
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}
