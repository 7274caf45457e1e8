package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docai/internal/bootstrap"
	"docai/internal/config"
	"docai/internal/logger"
	httptransport "docai/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.FatalErr(err, "load config failed")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.FatalErr(err, "bootstrap failed")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.ErrorErr(err, "close resources failed")
		}
	}()

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		logger.FatalErr(err, "create upload dir failed", "dir", cfg.Storage.UploadDir)
	}

	router, err := httptransport.NewRouter(app)
	if err != nil {
		logger.FatalErr(err, "build router failed")
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalErr(err, "server failed")
		}
	}()

	<-ctx.Done()
	shutdown(server)
}

func shutdown(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorErr(err, "server shutdown failed")
	}
}
