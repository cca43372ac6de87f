// Package backend は設定に応じて store.Store の実装を選択して開きます。
package backend

import (
	"context"
	"fmt"

	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/store"
	"github.com/yourusername/book-catalog/internal/store/pgstore"
	"github.com/yourusername/book-catalog/internal/store/redisstore"
	"github.com/yourusername/book-catalog/internal/store/sqlitestore"
)

// Open は cfg.StoreDriver に対応するストアを開きます。
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		return redisstore.Open(ctx, cfg.RedisURL)
	case config.StoreSQLite:
		return sqlitestore.Open(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		return pgstore.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Describe はログ出力用に接続先を返します。認証情報は含めません。
func Describe(cfg *config.Config) string {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		return "redis"
	case config.StoreSQLite:
		return "sqlite:" + cfg.SQLitePath
	case config.StorePostgres:
		return "postgres"
	default:
		return cfg.StoreDriver
	}
}
