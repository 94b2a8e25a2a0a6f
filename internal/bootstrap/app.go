package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/cache"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/logger"
	"gopherai-docqa/internal/metrics"
	mysqlClient "gopherai-docqa/internal/platform/mysql"
	rabbitmqClient "gopherai-docqa/internal/platform/rabbitmq"
	redisClient "gopherai-docqa/internal/platform/redis"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/worker"
)

const historyDirtyTTL = 5 * time.Second

type App struct {
	*Core

	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.MessagePublisher
	MessageWorker *worker.MessagePersistWorker

	Auth      *app.AuthService
	Chat      *app.ChatService
	Documents *app.DocumentService

	StartedAt time.Time
}

// LoadCore reads the configuration and builds a logger and an infrastructure-free Core.
func LoadCore() (*Core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(logger.Options{Env: cfg.App.Env, Level: cfg.Log.Level})
	if err != nil {
		return nil, err
	}
	return NewCore(cfg, log, nil), nil
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(logger.Options{Env: cfg.App.Env, Level: cfg.Log.Level})
	if err != nil {
		return nil, err
	}
	metrics.Register()

	a := &App{StartedAt: time.Now()}
	if err := a.connect(ctx, cfg, log); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Core = NewCore(cfg, log, cache.NewRedisStore(a.Redis))

	userRepo := repository.NewUserRepository(a.MySQL)
	sessionRepo := repository.NewSessionRepository(a.MySQL)
	messageRepo := repository.NewMessageRepository(a.MySQL)
	documentRepo := repository.NewDocumentRepository(a.MySQL)

	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, log)
	if err := a.MessageWorker.Start(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	historyCache := cache.NewHistoryCache(
		cache.NewRedisStore(a.Redis),
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		historyDirtyTTL,
	)
	a.Auth = app.NewAuthService(userRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
	a.Chat = app.NewChatService(sessionRepo, messageRepo, a.Publisher, historyCache, a.QA, cfg.RAG.HistoryTurns, cfg.RAG.HistoryRetention, log)
	a.Documents = app.NewDocumentService(documentRepo, a.QA, a.Describer(), log)

	log.Info("application bootstrapped",
		zap.String("env", cfg.App.Env),
		zap.String("router_mode", cfg.Router.Mode),
		zap.Bool("vision", cfg.Vision.Enabled),
	)
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var err error
	if a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN(), log); err != nil {
		return err
	}
	if err := mysqlClient.Migrate(a.MySQL); err != nil {
		return err
	}
	if a.Redis, err = redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		return err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
		return err
	}
	a.Publisher = rabbitmqClient.NewMessagePublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue, log)
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.Core != nil {
		errs = append(errs, a.Core.Close())
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
