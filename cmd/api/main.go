// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/books"
	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/server"
	"github.com/yourusername/book-catalog/internal/store/backend"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSON(os.Stderr, "error").Error(context.Background(), "failed to load config", "error", err.Error())
		os.Exit(1)
	}

	log := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	docs, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := docs.Close(); err != nil {
			log.Warn(context.Background(), "failed to close store", "error", err.Error())
		}
	}()
	log.Info(ctx, "store opened", "driver", backend.Describe(cfg))

	sessionStore, closeSessions, err := setupSessions(ctx, cfg, docs)
	if err != nil {
		return err
	}
	defer closeSessions()

	jobManager, err := setupJobs(cfg, docs, log)
	if err != nil {
		return err
	}
	var scheduler books.ImageCheckScheduler
	if jobManager != nil {
		jobManager.StartWorkers()
		defer func() {
			if err := jobManager.Shutdown(context.Background()); err != nil {
				log.Warn(context.Background(), "failed to shut down jobs", "error", err.Error())
			}
		}()
		scheduler = &imageCheckScheduler{manager: jobManager}
		log.Info(ctx, "image checks enabled")
	}

	router := server.NewRouter(server.Deps{
		Config:    cfg,
		Store:     docs,
		Sessions:  sessionStore,
		Scheduler: scheduler,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting API server", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
