package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
)

// Guard はリクエストの呼び出し元を特定し、保護されたエンドポイントへのアクセスを制御します。
type Guard struct {
	resolvers []IdentityResolver
	log       logging.Logger
}

// NewGuard は resolvers を指定順に試す Guard を作成します。
func NewGuard(log logging.Logger, resolvers ...IdentityResolver) *Guard {
	return &Guard{resolvers: resolvers, log: log}
}

// ResolveIdentity は呼び出し元を返します。未認証の場合は (nil, nil) です。
func (g *Guard) ResolveIdentity(c *gin.Context) (*Identity, error) {
	for _, r := range g.resolvers {
		id, err := r.Resolve(c)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

// RequireAuthenticated は認証済みでないリクエストを 401 で中断するミドルウェアを返します。
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.ResolveIdentity(c)
		if err != nil {
			apperr.Respond(c, g.log, err)
			return
		}
		if id == nil {
			apperr.Respond(c, g.log, apperr.Unauthenticated(MsgLoginRequired))
			return
		}
		c.Set(ContextUserKey, id.Username)
		c.Next()
	}
}

// OptionalIdentity は呼び出し元が特定できればコンテキストに設定します。中断はしません。
func (g *Guard) OptionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.ResolveIdentity(c)
		if err != nil && apperr.IsKind(err, apperr.KindInternal) {
			g.log.Warn(c.Request.Context(), "identity resolution failed", "error", err.Error())
		}
		if id != nil {
			c.Set(ContextUserKey, id.Username)
		}
		c.Next()
	}
}

// CurrentUser はミドルウェアが設定したユーザー名を返します。
func CurrentUser(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return "", false
	}
	username, ok := v.(string)
	return username, ok && username != ""
}

// AuthorizeOwnership は actor が book の登録者でなければ PermissionDenied を返します。
func AuthorizeOwnership(book *models.Book, actor string) error {
	if book.Uploader != actor {
		return apperr.PermissionDenied(MsgPermissionDenied)
	}
	return nil
}
