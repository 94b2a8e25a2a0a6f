package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/officeextract"
	"gopherai-docqa/internal/pkg/pdfextract"
	"gopherai-docqa/internal/pkg/sheetextract"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/tabular"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrVisionDisabled  = errors.New("image description is not enabled")
)

type DocumentStore interface {
	CreateBatch(docs []model.Document) error
	ListByUserID(userID uint) ([]model.Document, error)
	DeleteAll() (int64, error)
}

// ImageDescriber turns image bytes into searchable text.
type ImageDescriber interface {
	Describe(data []byte) (string, error)
}

// DocumentService converts uploads and raw texts into documents or tables, ingests them and
// records what was ingested by whom.
type DocumentService struct {
	docRepo   DocumentStore
	qa        *QAService
	describer ImageDescriber
	logger    *zap.Logger
}

type UploadInput struct {
	UserID   uint
	Filename string
	Data     []byte
}

type TextInput struct {
	UserID   uint
	Name     string
	Content  string
	FileType rag.FileType
}

type ResetResult struct {
	Records int64 `json:"records_cleared"`
}

func NewDocumentService(docRepo DocumentStore, qa *QAService, describer ImageDescriber, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{docRepo: docRepo, qa: qa, describer: describer, logger: logger}
}

func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*IngestResult, error) {
	name := filepath.Base(strings.TrimSpace(input.Filename))
	if input.UserID == 0 || name == "" || name == "." {
		return nil, ErrInvalidInput
	}

	in, err := ReadFile(name, input.Data, s.describer)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, input.UserID, in)
}

// ReadFile converts one file into ingest input by extension: spreadsheets become tables,
// everything else becomes a text document. describer may be nil.
func ReadFile(name string, data []byte, describer ImageDescriber) (IngestInput, error) {
	var in IngestInput
	if len(data) == 0 {
		return in, ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case sheetextract.Supported(name):
		sheets, err := sheetextract.Extract(name, bytes.NewReader(data))
		if err != nil {
			return in, fmt.Errorf("read spreadsheet failed: %w", err)
		}
		t, err := tabular.NewTable(name, sheets)
		if err != nil {
			return in, err
		}
		in.Tables = []*tabular.Table{t}
	case ext == ".pdf":
		text, err := pdfextract.ExtractText(bytes.NewReader(data))
		if err != nil {
			return in, fmt.Errorf("extract pdf text failed: %w", err)
		}
		in.Documents = []rag.Document{pdfDocument(name, text)}
	case officeextract.Supported(name):
		text, err := officeextract.Extract(name, data)
		if err != nil {
			return in, fmt.Errorf("extract %s text failed: %w", strings.TrimPrefix(ext, "."), err)
		}
		in.Documents = []rag.Document{rag.NewDocument(text, name, rag.FileType(strings.TrimPrefix(ext, ".")))}
	case ext == ".txt" || ext == ".md":
		in.Documents = []rag.Document{rag.NewDocument(string(data), name, rag.FileTypeTXT)}
	case ext == ".png" || ext == ".jpg" || ext == ".jpeg":
		if describer == nil {
			return in, ErrVisionDisabled
		}
		text, err := describer.Describe(data)
		if err != nil {
			return in, fmt.Errorf("describe image failed: %w", err)
		}
		in.Documents = rag.ImageDocuments([]rag.ImageText{{Name: name, Text: text}})
	default:
		return in, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
	return in, nil
}

// pdfDocument cleans laid-out PDF text; table blocks pass through for the table chunker.
func pdfDocument(name, text string) rag.Document {
	return rag.NewDocument(rag.CleanPDFText(text), name, rag.FileTypePDF)
}

func (s *DocumentService) IngestText(ctx context.Context, input TextInput) (*IngestResult, error) {
	name := strings.TrimSpace(input.Name)
	if input.UserID == 0 || name == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrEmptyFile
	}
	fileType := input.FileType
	if fileType == "" {
		fileType = rag.FileTypeText
	}
	return s.ingest(ctx, input.UserID, IngestInput{Documents: []rag.Document{rag.NewDocument(input.Content, name, fileType)}})
}

func (s *DocumentService) IngestChat(ctx context.Context, userID uint, messages []rag.ChatMessage) (*IngestResult, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	docs := rag.ChatDocuments(messages)
	if len(docs) == 0 {
		return nil, ErrNothingAdded
	}
	return s.ingest(ctx, userID, IngestInput{Documents: docs})
}

func (s *DocumentService) IngestEmails(ctx context.Context, userID uint, emails []rag.Email) (*IngestResult, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	docs := rag.EmailDocuments(emails)
	if len(docs) == 0 {
		return nil, ErrNothingAdded
	}
	return s.ingest(ctx, userID, IngestInput{Documents: docs})
}

func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

func (s *DocumentService) Status() WorkspaceStatus {
	return s.qa.Workspace().Status()
}

// Reset empties the shared workspace and drops every ingestion record.
func (s *DocumentService) Reset() (*ResetResult, error) {
	s.qa.Workspace().Reset()
	n, err := s.docRepo.DeleteAll()
	if err != nil {
		return nil, err
	}
	return &ResetResult{Records: n}, nil
}

func (s *DocumentService) ingest(ctx context.Context, userID uint, in IngestInput) (*IngestResult, error) {
	result, err := s.qa.Ingest(ctx, in)
	if err != nil {
		return nil, err
	}
	s.record(userID, in, result)
	return result, nil
}

// record stores one row per indexed source and per registered table. Failures are logged only:
// the content is already searchable.
func (s *DocumentService) record(userID uint, in IngestInput, result *IngestResult) {
	if s.docRepo == nil {
		return
	}
	var rows []model.Document
	if result.Report != nil {
		types := map[string]rag.FileType{}
		for _, d := range in.Documents {
			types[d.Metadata.SourceName()] = d.Metadata.FileType
		}
		for _, src := range result.Report.Sources {
			rows = append(rows, model.Document{
				UserID:   userID,
				Name:     src,
				FileType: string(types[src]),
				Kind:     model.DocumentKindText,
				BatchID:  result.Report.BatchID,
			})
		}
	}
	for _, name := range result.Tables {
		rows = append(rows, model.Document{UserID: userID, Name: name, FileType: tableFileType(name), Kind: model.DocumentKindTable})
	}
	if len(rows) == 0 {
		return
	}
	if err := s.docRepo.CreateBatch(rows); err != nil {
		s.logger.Warn("record ingested documents failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// tableFileType reads the extension of a table name; "invoice.pdf (table 2)" yields "pdf".
func tableFileType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if i := strings.IndexByte(ext, ' '); i >= 0 {
		ext = ext[:i]
	}
	return ext
}
