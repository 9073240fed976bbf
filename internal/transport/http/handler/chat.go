package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"turbott/internal/ai"
	"turbott/internal/app"
	"turbott/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type AskRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	response.OK(c, h.chatService.CreateSession())
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	response.OK(c, h.chatService.ListSessions())
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	turns, err := h.chatService.History(sessionID)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, turns)
}

func (h *ChatHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.chatService.ClearSession(sessionID); err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, gin.H{"cleared_session_id": sessionID})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.chatService.DeleteSession(sessionID); err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

// AskStream answers over SSE, emitting "data:" events per answer chunk and a
// final "done" event carrying the full answer.
func (h *ChatHandler) AskStream(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.chatService.AskStream(c.Request.Context(), req.SessionID, req.Question,
		func(chunk string) error {
			if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
				return writeErr
			}
			flusher.Flush()
			return nil
		})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(err.Error()) + "\n\n")); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(result.Answer) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	return strings.ReplaceAll(replaced, "\n", "\\n")
}

// Export streams the session transcript as a plain-text download.
func (h *ChatHandler) Export(c *gin.Context) {
	sessionID := c.Query("session_id")
	transcript, err := h.chatService.ExportSession(sessionID)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="conversation.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(transcript))
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrEmptyIndex):
		response.Error(c, http.StatusConflict, response.CodeEmptyIndex, "no documents indexed yet")
	case errors.Is(err, app.ErrModelMismatch):
		response.Error(c, http.StatusConflict, response.CodeModelMismatch, err.Error())
	case errors.Is(err, ai.ErrEmbeddingAPI), errors.Is(err, ai.ErrGenerationAPI), errors.Is(err, app.ErrNoAnswer):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamAPI, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
	}
}
