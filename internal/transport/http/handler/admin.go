package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
	"sopbot/internal/cache"
	"sopbot/internal/transport/http/response"
)

const defaultLearnedLimit = 100

type AdminHandler struct {
	knowledgeService *app.KnowledgeService
	answerCache      *cache.AnswerCache
}

func NewAdminHandler(knowledgeService *app.KnowledgeService, answerCache *cache.AnswerCache) *AdminHandler {
	return &AdminHandler{knowledgeService: knowledgeService, answerCache: answerCache}
}

// ListLearned handles GET /learned.
func (h *AdminHandler) ListLearned(c *gin.Context) {
	limit := defaultLearnedLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	facts, err := h.knowledgeService.ListActive(limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list learned facts failed")
		return
	}
	response.OK(c, gin.H{"facts": facts, "count": len(facts)})
}

// ClearCache handles POST /cache/clear.
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if err := h.answerCache.FlushAll(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, "clear cache failed")
		return
	}
	response.OK(c, gin.H{"success": true})
}
