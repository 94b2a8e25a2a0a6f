package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/transport/http/response"
)

const (
	maxUploadSize = 20 << 20 // 20 MB
	maxImageSize  = 5 << 20  // 5 MB
	maxFiles      = 10
)

type DocumentHandler struct {
	docs *app.DocumentService
}

type IngestTextRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Content  string `json:"content" binding:"required"`
	FileType string `json:"file_type" binding:"omitempty,oneof=text txt email chat ocr_image"`
}

type IngestChatRequest struct {
	Messages []rag.ChatMessage `json:"messages" binding:"required,min=1"`
}

type IngestEmailsRequest struct {
	Emails []rag.Email `json:"emails" binding:"required,min=1"`
}

type uploadView struct {
	Filename string            `json:"filename"`
	Result   *app.IngestResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func NewDocumentHandler(docs *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Upload ingests every multipart "file" part. Each file is processed on its own; the request
// fails only when no file could be ingested.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file (form field 'file')")
		return
	}
	files := form.File["file"]
	if len(files) > maxFiles {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "too many files (max 10)")
		return
	}

	views := make([]uploadView, 0, len(files))
	var firstErr error
	ingested := 0
	for _, file := range files {
		if msg := checkSize(file); msg != "" {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, msg)
			return
		}
		data, err := readFile(file)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded file")
			return
		}

		result, err := h.docs.Upload(c.Request.Context(), app.UploadInput{UserID: userID, Filename: file.Filename, Data: data})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			views = append(views, uploadView{Filename: file.Filename, Error: err.Error()})
			continue
		}
		ingested++
		views = append(views, uploadView{Filename: file.Filename, Result: result})
	}

	if ingested == 0 {
		writeServiceError(c, firstErr, "upload failed")
		return
	}
	response.OK(c, gin.H{"files": views})
}

func (h *DocumentHandler) IngestText(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.docs.IngestText(c.Request.Context(), app.TextInput{
		UserID:   userID,
		Name:     req.Name,
		Content:  req.Content,
		FileType: rag.FileType(req.FileType),
	})
	if err != nil {
		writeServiceError(c, err, "ingest text failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) IngestChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IngestChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.docs.IngestChat(c.Request.Context(), userID, req.Messages)
	if err != nil {
		writeServiceError(c, err, "ingest chat failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) IngestEmails(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IngestEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.docs.IngestEmails(c.Request.Context(), userID, req.Emails)
	if err != nil {
		writeServiceError(c, err, "ingest emails failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.docs.List(userID)
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	response.OK(c, h.docs.Status())
}

// Reset clears the shared workspace for every user.
func (h *DocumentHandler) Reset(c *gin.Context) {
	result, err := h.docs.Reset()
	if err != nil {
		writeServiceError(c, err, "reset failed")
		return
	}
	response.OK(c, result)
}

func checkSize(file *multipart.FileHeader) string {
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".png", ".jpg", ".jpeg":
		if file.Size > maxImageSize {
			return "image too large (max 5MB)"
		}
	default:
		if file.Size > maxUploadSize {
			return "file too large (max 20MB)"
		}
	}
	return ""
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
