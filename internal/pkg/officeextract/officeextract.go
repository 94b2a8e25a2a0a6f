package officeextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	tableStart = "----- TABLE -----"
	tableEnd   = "----- END TABLE -----"

	// upper bound on one decompressed XML part
	maxPartBytes = 64 << 20
)

var ErrUnsupportedFormat = errors.New("unsupported office format")

// Supported reports whether filename is a Word or PowerPoint file this package reads.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx", ".pptx":
		return true
	}
	return false
}

// Extract returns the text of a .docx or .pptx file in reading order. Paragraphs are
// separated by newlines, tables become tab-separated blocks between "----- TABLE -----"
// sentinels, and every slide starts with a "[Slide N]" line.
// Returns empty string and nil error if the file has no text.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".docx" && ext != ".pptx" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open %s archive failed: %w", ext, err)
	}
	if ext == ".docx" {
		return extractDocx(zr)
	}
	return extractPptx(zr)
}

func extractDocx(zr *zip.Reader) (string, error) {
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		parts, err := readPart(f)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, "\n"), nil
	}
	return "", errors.New("word/document.xml not found")
}

type slidePart struct {
	num  int
	file *zip.File
}

func extractPptx(zr *zip.Reader) (string, error) {
	var slides []slidePart
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "ppt/slides/slide")
		if name == f.Name || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slidePart{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var out []string
	for _, s := range slides {
		parts, err := readPart(s.file)
		if err != nil {
			return "", err
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("[Slide %d]", s.num))
		out = append(out, parts...)
	}
	return strings.Join(out, "\n"), nil
}

func readPart(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w", f.Name, err)
	}
	defer rc.Close()
	parts, err := walk(io.LimitReader(rc, maxPartBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s failed: %w", f.Name, err)
	}
	return parts, nil
}

// walk streams WordprocessingML or DrawingML and returns top-level paragraphs and table
// blocks in document order. Both dialects share the p, t, tbl, tr and tc local names.
// Nested tables are flattened into the enclosing cell.
func walk(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		parts  []string
		para   strings.Builder
		cell   []string
		row    []string
		rows   []string
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				para.WriteByte(' ')
			case "tbl":
				depth++
				if depth == 1 {
					rows = rows[:0]
				}
			case "tr":
				if depth == 1 {
					row = row[:0]
				}
			case "tc":
				if depth == 1 {
					cell = cell[:0]
				}
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					continue
				}
				if depth > 0 {
					cell = append(cell, text)
				} else {
					parts = append(parts, text)
				}
			case "tc":
				if depth == 1 {
					row = append(row, cellText(cell))
				}
			case "tr":
				if depth == 1 && strings.TrimSpace(strings.Join(row, "")) != "" {
					rows = append(rows, strings.Join(row, "\t"))
				}
			case "tbl":
				depth--
				if depth == 0 && len(rows) > 0 {
					parts = append(parts, tableStart+"\n"+strings.Join(rows, "\n")+"\n"+tableEnd)
				}
			}
		}
	}
}

// cellText joins a cell's paragraphs onto one line so the row stays tab-separated.
func cellText(paras []string) string {
	s := strings.Join(paras, " ")
	return strings.Join(strings.Fields(s), " ")
}
