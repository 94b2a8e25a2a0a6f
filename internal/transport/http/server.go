package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/bootstrap"
	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/transport/http/handler"
	"gopherai-docqa/internal/transport/http/middleware"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger parts spill to disk.
const maxMultipartMemory = 32 << 20

type Services struct {
	Auth      *app.AuthService
	Chat      *app.ChatService
	QA        *app.QAService
	Documents *app.DocumentService
}

func NewRouter(a *bootstrap.App) *gin.Engine {
	gin.SetMode(a.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(a.Logger), metrics.Middleware())

	router.GET("/healthz", handler.NewHealthHandler(a).Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterAPI(router, Services{
		Auth:      a.Auth,
		Chat:      a.Chat,
		QA:        a.QA,
		Documents: a.Documents,
	}, a.Config.Auth.JWTSecret, a.Config.RAG.HistoryRetention)
	return router
}

// RegisterAPI mounts the /api/v1 routes. Everything but register and login requires a JWT.
func RegisterAPI(router *gin.Engine, svc Services, jwtSecret string, historyLimit int) {
	router.MaxMultipartMemory = maxMultipartMemory

	authHandler := handler.NewAuthHandler(svc.Auth)
	chatHandler := handler.NewChatHandler(svc.Chat, historyLimit)
	qaHandler := handler.NewQAHandler(svc.QA)
	documentHandler := handler.NewDocumentHandler(svc.Documents)
	requireAuth := middleware.AuthJWT(jwtSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	protected := v1.Group("")
	protected.Use(requireAuth)
	protected.POST("/query", qaHandler.Query)
	protected.GET("/status", documentHandler.Status)
	protected.POST("/reset", documentHandler.Reset)

	docs := protected.Group("/documents")
	docs.POST("/upload", documentHandler.Upload)
	docs.POST("/text", documentHandler.IngestText)
	docs.POST("/chat", documentHandler.IngestChat)
	docs.POST("/emails", documentHandler.IngestEmails)
	docs.GET("", documentHandler.List)

	chat := protected.Group("/chat")
	chat.POST("/sessions", chatHandler.CreateSession)
	chat.GET("/sessions", chatHandler.ListSessions)
	chat.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chat.POST("/messages", chatHandler.SendMessage)
	chat.GET("/history", chatHandler.GetHistory)
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second
