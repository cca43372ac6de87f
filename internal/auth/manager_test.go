package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/store"
)

// countingSessions は作成されたセッションを記録する SessionStore です。
type countingSessions struct {
	*MemorySessionStore
	mu      sync.Mutex
	created int
}

func (c *countingSessions) Create(ctx context.Context, s Session) error {
	c.mu.Lock()
	c.created++
	c.mu.Unlock()
	return c.MemorySessionStore.Create(ctx, s)
}

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore, *countingSessions, *TokenIssuer) {
	t.Helper()
	users := store.NewMemoryStore()
	sessions := &countingSessions{MemorySessionStore: NewMemorySessionStore(nil)}
	tokens := NewTokenIssuer(testSecret, 24*time.Hour, nil)
	return NewManager(users, sessions, tokens, time.Hour, WithBcryptCost(bcrypt.MinCost)), users, sessions, tokens
}

func TestRegisterValidation(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	for _, tc := range []struct{ username, password string }{
		{"", "pw"},
		{"alice", ""},
		{"", ""},
	} {
		err := m.Register(ctx, tc.username, tc.password)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.EqualError(t, err, MsgCredentialsRequired)
	}

	err := m.Register(ctx, "alice", strings.Repeat("x", 73))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	m, users, _, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "pw1"))

	u, err := users.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw1")))
}

func TestRegisterDuplicateKeepsFirstHash(t *testing.T) {
	m, users, _, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "pw1"))
	first, err := users.FindUser(ctx, "alice")
	require.NoError(t, err)

	err = m.Register(ctx, "alice", "pw2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.EqualError(t, err, MsgUsernameTaken)

	after, err := users.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.PasswordHash, after.PasswordHash)

	// 大文字小文字が異なれば別ユーザー
	require.NoError(t, m.Register(ctx, "Alice", "pw2"))
}

func TestAuthenticateWrongPasswordIssuesNothing(t *testing.T) {
	m, _, sessions, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "alice", "pw1"))

	login, err := m.Authenticate(ctx, "alice", "wrong")
	assert.Nil(t, login)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	assert.EqualError(t, err, MsgInvalidCredentials)

	login, err = m.Authenticate(ctx, "mallory", "pw1")
	assert.Nil(t, login)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	assert.Zero(t, sessions.created)
}

func TestAuthenticateIssuesSessionAndToken(t *testing.T) {
	m, _, sessions, tokens := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "alice", "pw1"))

	login, err := m.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", login.Username)
	assert.NotEmpty(t, login.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), login.ExpiresAt, time.Minute)

	username, err := tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	sess, err := sessions.Get(ctx, login.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.IssuedAt))

	require.NoError(t, m.Logout(ctx, login.Session.ID))
	sess, err = sessions.Get(ctx, login.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestAuthenticateMissingFields(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	_, err := m.Authenticate(context.Background(), "alice", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
