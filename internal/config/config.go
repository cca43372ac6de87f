// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretKey は開発用の署名鍵です。release モードでは使用できません。
const DefaultSecretKey = "supersecret"

// ストアの種類
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
}

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port            string // APIサーバーのポート番号
	GinMode         string // Ginの実行モード (debug, release, test)
	ShutdownTimeout time.Duration
	LogLevel        string

	// 認証設定
	SecretKey    string        // セッションCookieとJWTの署名鍵
	TokenTTL     time.Duration // アクセストークンの有効期間
	SessionTTL   time.Duration // セッションの有効期間
	CookieSecure bool          // HTTPS 配信時のみ true

	// CORS設定
	CORSAllowedOrigins []string

	// ストア設定
	StoreDriver  string // memory, redis, sqlite, postgres
	SessionStore string // memory, redis
	RedisURL     string
	SQLitePath   string
	DatabaseURL  string

	// 画像チェック（空の QueueRedisURL で無効）
	QueueRedisURL     string
	ImageCheckTimeout time.Duration
	ImageCheckMaxSize int64
	ImageCheckPrivate bool // プライベートアドレスへの取得を許可する（開発用）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	ginMode := getEnv("GIN_MODE", "debug")

	config := &Config{
		Port:            getEnv("PORT", "5050"),
		GinMode:         ginMode,
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		SecretKey:    getEnv("SECRET_KEY", DefaultSecretKey),
		TokenTTL:     time.Duration(getEnvAsInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		SessionTTL:   time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		CookieSecure: getEnvAsBool("COOKIE_SECURE", ginMode == "release"),

		CORSAllowedOrigins: buildOrigins(getEnv("CORS_ALLOWED_ORIGINS", ""), getEnv("FRONTEND_URL", "")),

		StoreDriver:  getEnv("STORE_DRIVER", StoreMemory),
		SessionStore: getEnv("SESSION_STORE", ""),
		RedisURL:     getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/books.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		QueueRedisURL:     getEnv("QUEUE_REDIS_URL", ""),
		ImageCheckTimeout: time.Duration(getEnvAsInt("IMAGE_CHECK_TIMEOUT_SECONDS", 5)) * time.Second,
		ImageCheckMaxSize: getEnvAsInt64("IMAGE_CHECK_MAX_BYTES", 512*1024),
		ImageCheckPrivate: getEnvAsBool("IMAGE_CHECK_ALLOW_PRIVATE", false),
	}

	// セッションストアは未指定ならドキュメントストアに合わせる
	if config.SessionStore == "" {
		if config.StoreDriver == StoreRedis {
			config.SessionStore = StoreRedis
		} else {
			config.SessionStore = StoreMemory
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be > 0")
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for STORE_DRIVER=redis")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for STORE_DRIVER=sqlite")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.SecretKey == DefaultSecretKey {
			return fmt.Errorf("SECRET_KEY must be set in release mode")
		}
		if c.StoreDriver == StoreMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in release mode")
		}
	}

	return nil
}

// buildOrigins は CORS 許可オリジンを組み立てます。
// FRONTEND_URL が指定された場合は https 版も追加します。
func buildOrigins(raw, frontendURL string) []string {
	var origins []string
	if strings.TrimSpace(raw) == "" {
		origins = append(origins, defaultOrigins...)
	} else {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	if frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/"); frontendURL != "" {
		origins = appendUnique(origins, frontendURL)
		origins = appendUnique(origins, strings.Replace(frontendURL, "http://", "https://", 1))
	}
	return origins
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
