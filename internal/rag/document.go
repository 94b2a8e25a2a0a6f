package rag

import (
	"errors"
	"strings"
)

type FileType string

const (
	FileTypePDF          FileType = "pdf"
	FileTypeDOCX         FileType = "docx"
	FileTypeTXT          FileType = "txt"
	FileTypePPTX         FileType = "pptx"
	FileTypeXLSX         FileType = "xlsx"
	FileTypeCSV          FileType = "csv"
	FileTypeOCRImage     FileType = "ocr_image"
	FileTypeEmail        FileType = "email"
	FileTypeChat         FileType = "chat"
	FileTypeExcelSummary FileType = "excel_summary"
	FileTypeText         FileType = "text"
)

const UnknownSource = "Unknown"

var (
	ErrNoChunks               = errors.New("no valid chunks found in documents")
	ErrEmbeddingUnavailable   = errors.New("embedding model unavailable")
	ErrDimensionMismatch      = errors.New("embedding dimension mismatch")
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)

type Metadata struct {
	Source   string            `json:"source"`
	FileType FileType          `json:"file_type"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Document is extracted plain text plus the metadata needed for citation.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Index    int      `json:"chunk_index"`
}

func NewDocument(content, source string, fileType FileType) Document {
	return Document{
		Content: content,
		Metadata: Metadata{
			Source:   source,
			FileType: fileType,
		},
	}
}

// SourceName returns the citation name, falling back to UnknownSource.
func (m Metadata) SourceName() string {
	if s := strings.TrimSpace(m.Source); s != "" {
		return s
	}
	return UnknownSource
}

func (m Metadata) clone() Metadata {
	out := Metadata{Source: m.Source, FileType: m.FileType}
	if len(m.Extra) > 0 {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
