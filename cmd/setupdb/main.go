// Command setupdb creates the schema and the initial superuser.
package main

import (
	"context"
	"os"
	"time"

	"docai/internal/app"
	"docai/internal/config"
	"docai/internal/logger"
	"docai/internal/pkg/jwtutil"
	"docai/internal/platform/postgres"
	"docai/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.FatalErr(err, "load config failed")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.URL, postgres.Options{MaxIdleConns: 1, MaxOpenConns: 2})
	if err != nil {
		logger.FatalErr(err, "connect postgres failed")
	}
	defer func() {
		_ = postgres.Close(db)
	}()

	if err := postgres.Migrate(ctx, db, cfg.Embedding.Dimension); err != nil {
		logger.FatalErr(err, "migrate failed")
	}
	logger.Info("schema ready", "vector_dimension", cfg.Embedding.Dimension)

	signer, err := jwtutil.NewSigner(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.AccessTokenTTL())
	if err != nil {
		logger.FatalErr(err, "create token signer failed")
	}
	auth := app.NewAuthService(repository.NewUserRepository(db), signer)

	admin, created, err := auth.EnsureAdmin(ctx, app.RegisterInput{
		Email:    envOr("ADMIN_EMAIL", "admin@example.com"),
		Username: envOr("ADMIN_USERNAME", "admin"),
		Password: envOr("ADMIN_PASSWORD", "admin123"),
	})
	if err != nil {
		logger.FatalErr(err, "ensure admin failed")
	}
	if created {
		logger.Warn("admin user created, change its password", "username", admin.Username, "email", admin.Email)
		return
	}
	logger.Info("admin user already present", "username", admin.Username)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
