package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
)

func rateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAnalyticsHandler(app.NewAnalyticsService(nil))
	router.POST("/rate", h.Rate)
	return router
}

func TestRateRejectsInvalidPayloads(t *testing.T) {
	router := rateRouter()
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"rating too low", `{"questionId":"q_1_abc","rating":0}`},
		{"rating too high", `{"questionId":"q_1_abc","rating":6}`},
		{"missing question id", `{"rating":4}`},
		{"feedback too long", `{"questionId":"q_1_abc","rating":4,"feedback":"` + strings.Repeat("x", 501) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/rate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("failure body must carry an error field: %s", w.Body.String())
			}
		})
	}
}
