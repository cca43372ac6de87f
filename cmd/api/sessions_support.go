package main

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/book-catalog/internal/auth"
	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/store"
	"github.com/yourusername/book-catalog/internal/store/redisstore"
)

// setupSessions はセッションストアを構築します。
// ドキュメントストアも Redis の場合は同じクライアントを共有します。
func setupSessions(ctx context.Context, cfg *config.Config, docs store.Store) (auth.SessionStore, func(), error) {
	if cfg.SessionStore != config.StoreRedis {
		return auth.NewMemorySessionStore(nil), func() {}, nil
	}

	if rs, ok := docs.(*redisstore.Store); ok {
		return auth.NewRedisSessionStore(rs.Client()), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping session redis: %w", err)
	}
	return auth.NewRedisSessionStore(client), func() { _ = client.Close() }, nil
}
