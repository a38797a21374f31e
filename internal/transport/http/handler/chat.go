package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
	"sopbot/internal/transport/http/response"
)

type ChatHandler struct {
	chatService  *app.ChatService
	historyLimit int
}

type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Question  string        `json:"question" binding:"required"`
	History   []HistoryTurn `json:"history"`
	SessionID string        `json:"sessionId"`
}

func NewChatHandler(chatService *app.ChatService, historyLimit int) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 12
	}
	return &ChatHandler{chatService: chatService, historyLimit: historyLimit}
}

// Ask handles POST /chat.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), app.AskInput{
		Question:  req.Question,
		History:   formatHistory(req.History, h.historyLimit),
		SessionID: strings.TrimSpace(req.SessionID),
		Identity:  identityFromContext(c),
		Start:     time.Now(),
	})
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, answer)
}

// AskStream handles POST /chat/stream with server-sent events.
func (h *ChatHandler) AskStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	streaming := false
	emit := func(event app.StreamEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		streaming = true
		c.Writer.Flush()
		return nil
	}

	err := h.chatService.Stream(c.Request.Context(), app.AskInput{
		Question:  req.Question,
		History:   formatHistory(req.History, h.historyLimit),
		SessionID: strings.TrimSpace(req.SessionID),
		Identity:  identityFromContext(c),
		Start:     time.Now(),
	}, emit)
	if err != nil && !streaming {
		// Nothing went out yet, so a plain JSON error is still possible.
		writeChatError(c, err)
	}
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrQuestionEmpty),
		errors.Is(err, app.ErrQuestionTooLong),
		errors.Is(err, app.ErrEmptyCommand),
		errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

// formatHistory renders the trailing turns of the conversation as prompt
// text, newest-last.
func formatHistory(turns []HistoryTurn, limit int) string {
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	var b strings.Builder
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		label := "User"
		if turn.Role == "assistant" || turn.Role == "bot" {
			label = "Assistant"
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}
