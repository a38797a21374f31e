package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"sopbot/internal/ai"
	appsvc "sopbot/internal/app"
	"sopbot/internal/bootstrap"
	"sopbot/internal/cache"
	"sopbot/internal/platform/rabbitmq"
	"sopbot/internal/repository"
	"sopbot/internal/retrieval"
	"sopbot/internal/transport/http/handler"
	"sopbot/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	cfg := app.Config

	userRepo := repository.NewUserRepository(app.MySQL)
	analyticsRepo := repository.NewAnalyticsRepository(app.MySQL)
	historyRepo := repository.NewHistoryRepository(app.MySQL)
	factRepo := repository.NewLearnedFactRepository(app.MySQL)
	chunkRepo := repository.NewKnowledgeChunkRepository(app.MySQL)

	llmClient := ai.NewOpenAICompatibleClient()
	generator := ai.NewGenerator(llmClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	store := retrieval.NewStore(chunkRepo, llmClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	answerCache := cache.NewAnswerCache(
		app.Redis,
		time.Duration(cfg.Cache.AnswerTTLSeconds)*time.Second,
		app.Logger,
	)
	historyPub := rabbitmq.NewHistoryPublisher(app.MQConn, cfg.RabbitMQ.HistoryPersistQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		app.Logger,
	)
	knowledgeService := appsvc.NewKnowledgeService(factRepo, store, answerCache, app.Logger)
	analyticsService := appsvc.NewAnalyticsService(analyticsRepo)
	historyService := appsvc.NewHistoryService(historyRepo)
	chatService := appsvc.NewChatService(
		answerCache,
		store,
		generator,
		knowledgeService,
		analyticsService,
		historyPub,
		app.Logger,
		appsvc.ChatServiceOptions{
			TopK:             cfg.Retrieval.TopK,
			MaxQuestionChars: cfg.Chat.MaxQuestionChars,
			DevMode:          cfg.IsDev(),
		},
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, cfg.Chat.HistoryMaxMessages)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	adminHandler := handler.NewAdminHandler(knowledgeService, answerCache)
	historyHandler := handler.NewHistoryHandler(historyService)
	healthHandler := handler.NewHealthHandler(app)

	secret := cfg.Auth.JWTSecret
	quarterHour := 15 * time.Minute
	chatLimiter := middleware.RateLimit(cfg.RateLimit.ChatPerQuarterHour, quarterHour)
	loginLimiter := middleware.RateLimit(cfg.RateLimit.LoginPerQuarterHour, quarterHour)
	adminLimiter := middleware.RateLimit(cfg.RateLimit.AdminPerHour, time.Hour)
	apiLimiter := middleware.RateLimit(cfg.RateLimit.APIPerQuarterHour, quarterHour)

	router.GET("/healthz", healthHandler.Check)
	router.POST("/login", loginLimiter, authHandler.Login)

	chatGroup := router.Group("/chat")
	chatGroup.Use(chatLimiter, middleware.OptionalAuth(secret))
	chatGroup.POST("", chatHandler.Ask)
	chatGroup.POST("/stream", chatHandler.AskStream)

	router.POST("/rate", apiLimiter, middleware.OptionalAuth(secret), analyticsHandler.Rate)
	router.GET("/history", apiLimiter, middleware.RequireAuth(secret), historyHandler.List)

	adminGroup := router.Group("/")
	adminGroup.Use(adminLimiter, middleware.RequireAuth(secret), middleware.AdminOnly())
	adminGroup.GET("/analytics", analyticsHandler.Summary)
	adminGroup.GET("/learned", adminHandler.ListLearned)
	adminGroup.POST("/cache/clear", adminHandler.ClearCache)

	return router
}
