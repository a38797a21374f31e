package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sopbot/internal/app"
	"sopbot/internal/config"
	"sopbot/internal/model"
	mysqlClient "sopbot/internal/platform/mysql"
	rabbitmqClient "sopbot/internal/platform/rabbitmq"
	redisClient "sopbot/internal/platform/redis"
	"sopbot/internal/repository"
	"sopbot/internal/worker"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	HistoryWorker *worker.HistoryPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.Pool{
		MaxOpenConns: cfg.MySQL.MaxOpenConns,
		MaxIdleConns: cfg.MySQL.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.AnalyticsRecord{},
		&model.ChatSession{},
		&model.LearnedFact{},
		&model.KnowledgeChunk{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	historyRepo := repository.NewHistoryRepository(mysqlDB)
	historyWorker := worker.NewHistoryPersistWorker(mqConn, historyRepo, cfg.RabbitMQ.HistoryPersistQueue, logger)
	if err := historyWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start history worker failed: %w", err)
	}

	userRepo := repository.NewUserRepository(mysqlDB)
	authService := app.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		logger,
	)
	if err := authService.EnsureAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminName); err != nil {
		return nil, fmt.Errorf("seed admin account failed: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		HistoryWorker: historyWorker,
		StartedAt:     time.Now(),
	}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.HistoryWorker != nil {
		a.HistoryWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
