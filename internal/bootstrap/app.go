package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docai/internal/ai"
	"docai/internal/config"
	"docai/internal/logger"
	"docai/internal/metrics"
	"docai/internal/pkg/jwtutil"
	postgresClient "docai/internal/platform/postgres"
	rabbitmqClient "docai/internal/platform/rabbitmq"
	redisClient "docai/internal/platform/redis"
	"docai/internal/worker"
)

type App struct {
	Config    *config.Config
	Postgres  *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.EventPublisher
	Webhook   *worker.WebhookWorker

	Signer    *jwtutil.Signer
	Embedder  ai.Embedder
	Generator ai.Generator
	Metrics   *metrics.Metrics

	StartedAt time.Time
}

// New connects every backing service named in cfg. Redis and RabbitMQ are
// optional; Postgres is not.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	signer, err := jwtutil.NewSigner(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.AccessTokenTTL())
	if err != nil {
		return nil, err
	}

	embedder, err := ai.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Signer:    signer,
		Embedder:  embedder,
		Generator: ai.NewGenerator(cfg.LLM),
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	app.Postgres, err = postgresClient.New(ctx, cfg.Database.URL, postgresClient.Options{
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgresClient.Migrate(ctx, app.Postgres, cfg.Embedding.Dimension); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	app.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if app.MQConn != nil {
		app.Publisher = rabbitmqClient.NewEventPublisher(app.MQConn, cfg.RabbitMQ.DocumentEventsQueue)
		if cfg.Webhook.N8NURL != "" {
			app.Webhook = worker.NewWebhookWorker(app.MQConn, cfg.RabbitMQ.DocumentEventsQueue, cfg.Webhook.N8NURL, cfg.WebhookTimeout())
			if err := app.Webhook.Start(ctx); err != nil {
				_ = app.Close()
				return nil, fmt.Errorf("start webhook worker failed: %w", err)
			}
		}
	}

	logger.Info("application initialised",
		"llm_provider", ai.DetectProvider(cfg.LLM),
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", embedder.Model(),
		"redis", app.Redis != nil,
		"rabbitmq", app.MQConn != nil,
		"webhook", app.Webhook != nil,
	)
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Webhook != nil {
		a.Webhook.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if closer, ok := a.Embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		if err := postgresClient.Close(a.Postgres); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
