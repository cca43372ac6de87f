package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/redis/go-redis/v9"
)

// Session はサーバー側に保存するログインセッションです。
// クライアントは ID のみを署名付き Cookie で保持します。
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore はセッションの保存先です。
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	// Get は存在しない、または期限切れのセッションに対して (nil, nil) を返します。
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// GenerateSessionID は 256 ビットのランダムなセッション ID を生成します。
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CookieOptions はセッション Cookie の属性を返します。
// フロントエンドが別オリジンから資格情報付きで呼び出すため SameSite=None です。
func CookieOptions(ttl time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	}
}

// RedisSessionStore は Redis にセッションを保存します。TTL は有効期限までの残り時間です。
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisSessionStore は RedisSessionStore を作成します。
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "bc:session:",
		now:    time.Now,
	}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisSessionStore) Create(ctx context.Context, s Session) error {
	if s.ID == "" || s.Username == "" {
		return errors.New("session: missing id or username")
	}
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("session: expires_at must be in the future")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	if !s.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// MemorySessionStore はプロセス内にセッションを保存します。単一プロセスの開発用です。
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemorySessionStore は MemorySessionStore を作成します。now が nil の場合は time.Now を使用します。
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{sessions: make(map[string]Session), now: now}
}

func (m *MemorySessionStore) Create(_ context.Context, s Session) error {
	if s.ID == "" || s.Username == "" {
		return errors.New("session: missing id or username")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// 期限切れのセッションはここでまとめて破棄する
	now := m.now()
	for id, existing := range m.sessions {
		if !existing.ExpiresAt.After(now) {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.ExpiresAt.After(m.now()) {
		delete(m.sessions, id)
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
