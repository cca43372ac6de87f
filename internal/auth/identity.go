package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/apperr"
)

// 本人確認の経路
const (
	SourceToken   = "token"
	SourceSession = "session"
)

// Identity はリクエストの呼び出し元です。
type Identity struct {
	Username string
	Source   string
}

// IdentityResolver は 1 つの方式で呼び出し元を特定します。
//
// 方式が該当しない場合は (nil, nil) を返し、次の resolver に委ねます。
// 該当したが失敗した場合はエラーを返し、以降の resolver は実行されません。
type IdentityResolver interface {
	Resolve(c *gin.Context) (*Identity, error)
}

// BearerTokenResolver は Authorization ヘッダーのアクセストークンを検証します。
type BearerTokenResolver struct {
	Tokens TokenVerifier
}

func (r BearerTokenResolver) Resolve(c *gin.Context) (*Identity, error) {
	raw, ok := extractBearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, nil
	}
	username, err := r.Tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	return &Identity{Username: username, Source: SourceToken}, nil
}

// extractBearerToken は "Bearer " プレフィックス（省略可）を取り除きます。
func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		header = strings.TrimSpace(header[len(prefix):])
	}
	return header, true
}

// SessionResolver はセッション Cookie の ID からサーバー側セッションを引きます。
// 未知または期限切れのセッションは該当なしとして扱います。
type SessionResolver struct {
	Sessions SessionStore
	Now      func() time.Time
}

func (r SessionResolver) Resolve(c *gin.Context) (*Identity, error) {
	id := sessionIDFromCookie(c)
	if id == "" {
		return nil, nil
	}
	s, err := r.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load session: %w", err))
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if s == nil || !s.ExpiresAt.After(now()) {
		return nil, nil
	}
	return &Identity{Username: s.Username, Source: SourceSession}, nil
}

func sessionIDFromCookie(c *gin.Context) string {
	id, _ := sessions.Default(c).Get(sessionKeyID).(string)
	return id
}
