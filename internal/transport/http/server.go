package http

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	appsvc "docai/internal/app"
	"docai/internal/bootstrap"
	"docai/internal/cache"
	"docai/internal/config"
	"docai/internal/metrics"
	"docai/internal/pkg/chunker"
	"docai/internal/pkg/filevalidate"
	"docai/internal/pkg/textextract"
	"docai/internal/platform/postgres"
	"docai/internal/repository"
	"docai/internal/transport/http/handler"
	"docai/internal/transport/http/middleware"
)

// Deps is everything the router needs once infrastructure is connected.
type Deps struct {
	Config    *config.Config
	Auth      *appsvc.AuthService
	Documents *appsvc.DocumentService
	Search    *appsvc.SearchService
	Chat      *appsvc.ChatService
	Health    *handler.HealthHandler
	Metrics   *metrics.Metrics
	// Redis backs the rate limiter when set.
	Redis *redis.Client
}

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	cfg := app.Config

	userRepo := repository.NewUserRepository(app.Postgres)
	documentRepo := repository.NewDocumentRepository(app.Postgres)
	vectorRepo := repository.NewVectorRepository(app.Postgres)

	var publisher appsvc.EventPublisher
	if app.Publisher != nil {
		publisher = app.Publisher
	}

	searchService := appsvc.NewSearchService(
		vectorRepo,
		app.Embedder,
		cache.NewEmbeddingCache(app.Redis, cfg.EmbeddingCacheTTL()),
		app.Metrics,
	)

	deps := Deps{
		Config: cfg,
		Auth:   appsvc.NewAuthService(userRepo, app.Signer),
		Documents: appsvc.NewDocumentService(appsvc.DocumentServiceDeps{
			Documents: documentRepo,
			Vectors:   vectorRepo,
			Validator: filevalidate.New(cfg.AllowedExtensions(), cfg.MaxFileSizeBytes()),
			Extractor: textextract.New(),
			Chunker:   chunker.New(chunker.DefaultSize, chunker.DefaultOverlap),
			Embedder:  app.Embedder,
			Publisher: publisher,
			Metrics:   app.Metrics,
			UploadDir: cfg.Storage.UploadDir,
		}),
		Search:  searchService,
		Chat:    appsvc.NewChatService(searchService, app.Generator, app.Metrics),
		Metrics: app.Metrics,
		Redis:   app.Redis,
	}

	optional := []handler.Dependency{{Name: "redis"}, {Name: "rabbitmq"}}
	if app.Redis != nil {
		optional[0].Check = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	if app.MQConn != nil {
		optional[1].Check = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return fmt.Errorf("connection closed")
			}
			return nil
		}
	}
	deps.Health = handler.NewHealthHandler(
		handler.AppInfo{Name: cfg.App.Name, Version: cfg.App.Version, Env: cfg.App.Env, StartedAt: app.StartedAt},
		handler.Dependency{Name: "postgres", Check: func(ctx context.Context) error { return postgres.Ping(ctx, app.Postgres) }},
		optional...,
	)

	return newRouter(deps)
}

func newRouter(d Deps) (*gin.Engine, error) {
	if d.Config.App.GinMode != "" {
		gin.SetMode(d.Config.App.GinMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestLog(),
		middleware.Recovery(),
		middleware.Metrics(d.Metrics),
		cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID, middleware.HeaderProcessTime},
			AllowCredentials: false,
		}),
	)

	router.GET("/", d.Health.Root)
	router.GET("/health", d.Health.Check)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authHandler := handler.NewAuthHandler(d.Auth)
	documentHandler := handler.NewDocumentHandler(d.Documents, d.Config.MaxFileSizeBytes())
	searchHandler := handler.NewSearchHandler(d.Search)
	chatHandler := handler.NewChatHandler(d.Chat)
	requireUser := middleware.AuthJWT(d.Auth)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	if d.Config.RateLimit.Auth != "" {
		limit, err := middleware.RateLimit(d.Config.RateLimit.Auth, d.Redis)
		if err != nil {
			return nil, err
		}
		authGroup.POST("/register", limit, authHandler.Register)
		authGroup.POST("/login", limit, authHandler.Login)
	} else {
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	authGroup.GET("/me", requireUser, authHandler.Me)

	documents := v1.Group("/documents", requireUser)
	documents.POST("/upload", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/chunks", documentHandler.Chunks)
	documents.DELETE("/:id", documentHandler.Delete)

	admin := v1.Group("/admin", requireUser, middleware.RequireSuperuser())
	admin.GET("/documents", documentHandler.ListAll)

	search := v1.Group("/search", requireUser)
	search.POST("", searchHandler.Search)
	search.POST("/", searchHandler.Search)

	chat := v1.Group("/chat", requireUser)
	chat.POST("", chatHandler.Chat)
	chat.POST("/", chatHandler.Chat)
	chat.POST("/stream", chatHandler.Stream)

	return router, nil
}
