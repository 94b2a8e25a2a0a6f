package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/logger"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/tabular"
	"gopherai-docqa/internal/transport/http/middleware"
	"gopherai-docqa/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

// writeServiceError maps errors shared by question answering and ingestion endpoints.
// fallback is the message used for unexpected errors.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrQueryEmpty),
		errors.Is(err, app.ErrMessageEmpty),
		errors.Is(err, app.ErrEmptyFile),
		errors.Is(err, tabular.ErrEmptyTable):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNothingAdded), errors.Is(err, rag.ErrNoChunks):
		response.Error(c, http.StatusBadRequest, response.CodeNothingToIngest, err.Error())
	case errors.Is(err, app.ErrUnsupportedFile):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFile, err.Error())
	case errors.Is(err, app.ErrLLMConfig):
		response.Error(c, http.StatusBadRequest, response.CodeLLMConfig, err.Error())
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, err.Error())
	case errors.Is(err, app.ErrVisionDisabled):
		response.Error(c, http.StatusServiceUnavailable, response.CodeVisionUnavailable, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrMessageEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, err.Error())
	default:
		logger.From(c.Request.Context()).Error(fallback, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
