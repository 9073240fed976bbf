package http

import (
	"github.com/gin-gonic/gin"

	"turbott/internal/bootstrap"
	"turbott/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	chatHandler := handler.NewChatHandler(app.ChatService)
	documentHandler := handler.NewDocumentHandler(app.IndexService, app.Config.Docs)

	v1 := router.Group("/api/v1")

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.POST("/sessions/:id/clear", chatHandler.ClearSession)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.POST("/ask/stream", chatHandler.AskStream)
	chatGroup.GET("/history", chatHandler.History)
	chatGroup.GET("/export", chatHandler.Export)

	docGroup := v1.Group("/documents")
	docGroup.GET("", documentHandler.List)
	docGroup.POST("/upload", documentHandler.Upload)

	v1.POST("/index/reindex", documentHandler.Reindex)

	return router
}
