// Package server は HTTP ルーターを組み立てます。
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/auth"
	"github.com/yourusername/book-catalog/internal/books"
	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/store"
)

const (
	serviceName = "book-catalog-api"
	version     = "0.1.0"
)

// Deps はルーターが必要とする依存関係です。
type Deps struct {
	Config    *config.Config
	Store     store.Store
	Sessions  auth.SessionStore
	Scheduler books.ImageCheckScheduler // nil で画像確認を無効化
	Logger    logging.Logger
	Now       func() time.Time

	AuthOptions []auth.Option
}

// NewRouter はミドルウェアとルートを設定した gin.Engine を返します。
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	// セッションストアの設定（クッキー署名鍵は必須）
	cookieStore := cookie.NewStore([]byte(cfg.SecretKey))
	cookieOpts := auth.CookieOptions(cfg.SessionTTL, cfg.CookieSecure)
	cookieStore.Options(cookieOpts)
	router.Use(sessions.Sessions(auth.SessionCookieName, cookieStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	tokens := auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenTTL, now)
	authOpts := append([]auth.Option{auth.WithClock(now)}, deps.AuthOptions...)
	manager := auth.NewManager(deps.Store, deps.Sessions, tokens, cfg.SessionTTL, authOpts...)
	// トークンを先に評価し、なければセッションを見る
	guard := auth.NewGuard(log,
		auth.BearerTokenResolver{Tokens: tokens},
		auth.SessionResolver{Sessions: deps.Sessions, Now: now},
	)

	router.GET("/health", handleHealth)

	api := router.Group("/api")
	auth.NewHandler(manager, guard, cookieOpts, log).RegisterRoutes(api)
	books.NewHandler(books.NewService(deps.Store, deps.Scheduler, log), guard, log).RegisterRoutes(api)

	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": version,
	})
}
