package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
	"sopbot/internal/transport/http/middleware"
	"sopbot/internal/transport/http/response"
)

const defaultHistoryLimit = 50

type HistoryHandler struct {
	historyService *app.HistoryService
}

func NewHistoryHandler(historyService *app.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// List handles GET /history.
func (h *HistoryHandler) List(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	sessionID := strings.TrimSpace(c.Query("sessionId"))
	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := h.historyService.List(userID, sessionID, limit)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "load history failed")
		return
	}
	response.OK(c, gin.H{"sessions": sessions})
}
