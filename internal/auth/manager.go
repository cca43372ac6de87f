// Package auth はユーザー登録・ログイン（Credential Manager）と
// リクエストごとの本人確認・所有者チェック（Access Guard）を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

// SessionCookieName はセッション ID を保持する Cookie の名前です。
const SessionCookieName = "bc_session"

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

const sessionKeyID = "sid"

// クライアントに返すメッセージ
const (
	MsgNoData              = "No data provided"
	MsgCredentialsRequired = "Username and password are required"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
	MsgUsernameTaken       = "Username already taken!"
	MsgRegistered          = "User registered successfully!"
	MsgInvalidCredentials  = "Invalid credentials!"
	MsgLoggedIn            = "Logged in!"
	MsgLoggedOut           = "Logged out!"
	MsgLoginRequired       = "Login required!"
	MsgPermissionDenied    = "Permission denied!"
	MsgTokenExpired        = "Token expired!"
	MsgTokenInvalid        = "Invalid token!"
)

// Login はログイン成功時に発行されるセッションとトークンです。
type Login struct {
	Username  string
	Session   Session
	Token     string
	ExpiresAt time.Time // トークンの有効期限
}

// Manager は資格情報の登録と検証、セッションとトークンの発行を行います。
type Manager struct {
	users      store.UserStore
	sessions   SessionStore
	tokens     *TokenIssuer
	sessionTTL time.Duration
	cost       int
	now        func() time.Time
}

// Option は Manager の設定を変更します。
type Option func(*Manager)

// WithBcryptCost は bcrypt のコストを指定します。
func WithBcryptCost(cost int) Option {
	return func(m *Manager) { m.cost = cost }
}

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager は認証マネージャーを作成します。
func NewManager(users store.UserStore, sessions SessionStore, tokens *TokenIssuer, sessionTTL time.Duration, opts ...Option) *Manager {
	m := &Manager{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register はユーザーを登録します。
// username は大文字小文字を区別して一意です。重複は Conflict になります。
func (m *Manager) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return apperr.Validation(MsgCredentialsRequired)
	}

	hash, err := hashPassword(password, m.cost)
	if err != nil {
		if isPasswordTooLong(err) {
			return apperr.Validation(MsgPasswordTooLong)
		}
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	err = m.users.CreateUser(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    m.now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Conflict(MsgUsernameTaken)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	return nil
}

// Authenticate は資格情報を検証し、セッションとトークンを発行します。
// 失敗時はセッションもトークンも発行しません。
func (m *Manager) Authenticate(ctx context.Context, username, password string) (*Login, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation(MsgCredentialsRequired)
	}

	user, err := m.users.FindUser(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// ユーザーの存在有無が応答時間に出ないようにする
		verifyPassword(dummyHash(), password)
		return nil, apperr.Auth(MsgInvalidCredentials)
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("find user: %w", err))
	}
	if !verifyPassword(user.PasswordHash, password) {
		return nil, apperr.Auth(MsgInvalidCredentials)
	}

	token, expiresAt, err := m.tokens.Issue(user.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	id, err := GenerateSessionID()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := m.now()
	sess := Session{
		ID:        id,
		Username:  user.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create session: %w", err))
	}

	return &Login{
		Username:  user.Username,
		Session:   sess,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout はサーバー側のセッションを削除します。id が空の場合は何もしません。
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
