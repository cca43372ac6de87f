package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
	"github.com/yourusername/book-catalog/internal/store/redisstore"
	"github.com/yourusername/book-catalog/internal/store/storetest"
)

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := redisstore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestKeyLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h", CreatedAt: time.Now()}))
	book := &models.Book{Title: "Dune", Author: "Herbert", Uploader: "alice", CreatedAt: time.Now()}
	require.NoError(t, s.InsertBook(ctx, book))

	assert.True(t, mr.Exists("bc:user:alice"))
	assert.True(t, mr.Exists("bc:book:"+book.ID))
	members, err := mr.ZMembers("bc:books:index")
	require.NoError(t, err)
	assert.Equal(t, []string{book.ID}, members)

	require.NoError(t, s.DeleteBook(ctx, book.ID))
	assert.False(t, mr.Exists("bc:book:"+book.ID))
}

func TestListSkipsIndexEntriesWithoutDocument(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	book := &models.Book{Title: "Emma", Author: "Austen", Uploader: "bob", CreatedAt: time.Now()}
	require.NoError(t, s.InsertBook(ctx, book))
	_, err := mr.ZAdd("bc:books:index", 1, "orphan")
	require.NoError(t, err)

	books, err := s.ListBooks(ctx, models.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.ID, books[0].ID)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := redisstore.Open(context.Background(), "not-a-url://")
	require.Error(t, err)
}
