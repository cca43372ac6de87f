package main

import (
	"context"

	"github.com/yourusername/book-catalog/internal/books"
	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/imageprobe"
	"github.com/yourusername/book-catalog/internal/jobs"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/store"
)

type imageCheckScheduler struct {
	manager *jobs.Manager
}

func (s *imageCheckScheduler) Schedule(ctx context.Context, bookID, imageURL string) error {
	_, err := s.manager.Enqueue(ctx, &jobs.TaskPayload{
		BookID:   bookID,
		ImageURL: imageURL,
	})
	return err
}

var _ books.ImageCheckScheduler = (*imageCheckScheduler)(nil)

// setupJobs は QUEUE_REDIS_URL が設定されている場合のみジョブマネージャーを構築します。
func setupJobs(cfg *config.Config, docs store.BookStore, log logging.Logger) (*jobs.Manager, error) {
	if cfg.QueueRedisURL == "" {
		return nil, nil
	}

	prober := imageprobe.New(imageprobe.Options{
		Timeout:              cfg.ImageCheckTimeout,
		MaxBytes:             cfg.ImageCheckMaxSize,
		AllowPrivateNetworks: cfg.ImageCheckPrivate,
	})
	handler := jobs.NewImageCheckHandler(docs, prober, log.With("component", "image-check"))

	return jobs.NewManager(jobs.Options{
		RedisURL:    cfg.QueueRedisURL,
		TaskTimeout: cfg.ImageCheckTimeout,
	}, handler, log)
}
