package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionID(t *testing.T) {
	a, err := GenerateSessionID()
	require.NoError(t, err)
	b, err := GenerateSessionID()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestCookieOptions(t *testing.T) {
	opts := CookieOptions(time.Hour, true)
	assert.Equal(t, "/", opts.Path)
	assert.Equal(t, 3600, opts.MaxAge)
	assert.True(t, opts.HttpOnly)
	assert.True(t, opts.Secure)
	assert.Equal(t, http.SameSiteNoneMode, opts.SameSite)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := now
	s := NewMemorySessionStore(func() time.Time { return clock })
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Session{ID: "s1", Username: "alice", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	clock = now.Add(time.Hour)
	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, s.Create(ctx, Session{ID: "s2"}))
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisSessionStore(client)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Create(ctx, Session{ID: "s1", Username: "alice", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}))

	ttl := mr.TTL("bc:session:s1")
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, s.Delete(ctx, "s1"))
	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Create(ctx, Session{ID: "s2", Username: "bob", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)
	got, err = s.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, s.Create(ctx, Session{ID: "s3", Username: "bob", ExpiresAt: now.Add(-time.Second)}))
}
