// Package storetest は store.Store 実装が満たすべき振る舞いを検証する共通テストです。
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

// Factory はテストごとに空のストアを返します。
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run はすべての共通テストを実行します。
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ConcurrentRegistration", func(t *testing.T) { testConcurrentRegistration(t, newStore(t)) })
	t.Run("BookLifecycle", func(t *testing.T) { testBookLifecycle(t, newStore(t)) })
	t.Run("ListBooks", func(t *testing.T) { testListBooks(t, newStore(t)) })
	t.Run("ImageStatus", func(t *testing.T) { testImageStatus(t, newStore(t)) })
}

func strPtr(s string) *string { return &s }

func newBook(title, uploader string, createdAt time.Time) *models.Book {
	return &models.Book{
		Title:       title,
		Author:      "Author of " + title,
		Genre:       "Fiction",
		Description: "About " + title,
		Uploader:    uploader,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash-1", CreatedAt: base}))

	err := s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash-2", CreatedAt: base})
	require.ErrorIs(t, err, store.ErrDuplicate)

	u, err := s.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "hash-1", u.PasswordHash, "duplicate insert must not touch the first user")

	// username は大文字小文字を区別する
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "Alice", PasswordHash: "hash-3", CreatedAt: base}))

	_, err = s.FindUser(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentRegistration(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateUser(ctx, &models.User{Username: "carol", PasswordHash: "h", CreatedAt: base})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrDuplicate):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
}

func testBookLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	book := newBook("Dune", "alice", base)
	book.ImageURL = "https://img.example.com/dune.png"
	require.NoError(t, s.InsertBook(ctx, book))
	require.NotEmpty(t, book.ID)

	got, err := s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "alice", got.Uploader)
	assert.Equal(t, book.ImageURL, got.ImageURL)
	assert.True(t, got.CreatedAt.Equal(base), "created_at = %v", got.CreatedAt)

	later := base.Add(time.Hour)
	updated, err := s.UpdateBook(ctx, book.ID, models.BookPatch{
		Title: strPtr("Dune Messiah"),
		Genre: strPtr("Sci-Fi"),
	}, later)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Sci-Fi", updated.Genre)
	assert.Equal(t, "Author of Dune", updated.Author)
	assert.Equal(t, "alice", updated.Uploader)
	assert.True(t, updated.UpdatedAt.Equal(later))

	got, err = s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, "alice", got.Uploader)

	_, err = s.UpdateBook(ctx, "missing", models.BookPatch{Title: strPtr("x")}, later)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteBook(ctx, book.ID))
	_, err = s.FindBook(ctx, book.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.DeleteBook(ctx, book.ID), store.ErrNotFound)
}

func testListBooks(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.ListBooks(ctx, models.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	hobbit := newBook("The Hobbit", "alice", base.Add(2*time.Minute))
	hobbit.Author = "J.R.R. Tolkien"
	hobbit.Genre = "Fantasy"
	dune := newBook("Dune", "bob", base)
	dune.Genre = "Sci-Fi"
	emma := newBook("Emma", "alice", base.Add(time.Minute))

	for _, b := range []*models.Book{hobbit, dune, emma} {
		require.NoError(t, s.InsertBook(ctx, b))
	}

	all, err := s.ListBooks(ctx, models.BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Dune", "Emma", "The Hobbit"}, titles(all))

	byUploader, err := s.ListBooks(ctx, models.BookFilter{Uploader: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma", "The Hobbit"}, titles(byUploader))

	byGenre, err := s.ListBooks(ctx, models.BookFilter{Genre: "sci-fi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles(byGenre))

	byQuery, err := s.ListBooks(ctx, models.BookFilter{Query: "tolk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Hobbit"}, titles(byQuery))

	none, err := s.ListBooks(ctx, models.BookFilter{Query: "100%"})
	require.NoError(t, err)
	assert.Empty(t, none)

	// 非 ASCII 文字も大文字小文字を区別しない
	elan := newBook("Élan", "carol", base.Add(3*time.Minute))
	elan.Author = "Ñúñez"
	elan.Genre = "Ciencia Ficción"
	require.NoError(t, s.InsertBook(ctx, elan))

	byAccentGenre, err := s.ListBooks(ctx, models.BookFilter{Genre: "CIENCIA FICCIÓN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Élan"}, titles(byAccentGenre))

	byAccentTitle, err := s.ListBooks(ctx, models.BookFilter{Query: "élan"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Élan"}, titles(byAccentTitle))

	byAccentAuthor, err := s.ListBooks(ctx, models.BookFilter{Query: "ÑÚÑ", Uploader: "carol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Élan"}, titles(byAccentAuthor))
}

func testImageStatus(t *testing.T, s store.Store) {
	ctx := context.Background()

	book := newBook("Emma", "alice", base)
	book.ImageURL = "https://img.example.com/emma.jpg"
	book.ImageStatus = models.ImageStatusPending
	require.NoError(t, s.InsertBook(ctx, book))

	require.NoError(t, s.SetImageStatus(ctx, book.ID, book.ImageURL, models.ImageStatusOK))
	got, err := s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusOK, got.ImageStatus)

	err = s.SetImageStatus(ctx, book.ID, "https://img.example.com/old.jpg", models.ImageStatusUnreachable)
	require.ErrorIs(t, err, store.ErrStale)
	got, err = s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusOK, got.ImageStatus)

	err = s.SetImageStatus(ctx, "missing", book.ImageURL, models.ImageStatusOK)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func titles(books []models.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}
