package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
	"sopbot/internal/transport/http/response"
)

const (
	maxFeedbackChars = 500
	defaultTopN      = 10
)

type AnalyticsHandler struct {
	analyticsService *app.AnalyticsService
}

type RateRequest struct {
	QuestionID string `json:"questionId"`
	Rating     int    `json:"rating"`
	Feedback   string `json:"feedback"`
}

func NewAnalyticsHandler(analyticsService *app.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Rate handles POST /rate.
func (h *AnalyticsHandler) Rate(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len([]rune(req.Feedback)) > maxFeedbackChars {
		response.Error(c, http.StatusBadRequest, "feedback exceeds the maximum length")
		return
	}

	if err := h.analyticsService.Rate(req.QuestionID, req.Rating, req.Feedback); err != nil {
		switch {
		case errors.Is(err, app.ErrMissingQuestionID), errors.Is(err, app.ErrInvalidRating):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrRatingNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "save rating failed")
		}
		return
	}
	response.OK(c, gin.H{"success": true})
}

// Summary handles GET /analytics.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	topN := defaultTopN
	if s := c.Query("top"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			topN = n
		}
	}

	summary, err := h.analyticsService.Summary(topN)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "load analytics failed")
		return
	}
	response.OK(c, summary)
}
