package books

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

type scheduled struct{ bookID, imageURL string }

type fakeScheduler struct {
	calls []scheduled
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, bookID, imageURL string) error {
	f.calls = append(f.calls, scheduled{bookID, imageURL})
	return f.err
}

func ptr(s string) *string { return &s }

func validFields() Fields {
	return Fields{
		Title:       ptr("Dune"),
		Author:      ptr("Frank Herbert"),
		Genre:       ptr("Sci-Fi"),
		Description: ptr("Spice."),
	}
}

func newTestService(t *testing.T, sched ImageCheckScheduler) (*Service, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewService(s, sched, logging.Discard()), s
}

func TestCreateRequiresFields(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, mutate := range []func(*Fields){
		func(f *Fields) { f.Title = nil },
		func(f *Fields) { f.Author = ptr("") },
		func(f *Fields) { f.Genre = ptr("   ") },
		func(f *Fields) { f.Description = nil },
	} {
		in := validFields()
		mutate(&in)
		_, err := svc.Create(ctx, "alice", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.EqualError(t, err, MsgMissingFields)
	}
}

func TestCreateSetsUploader(t *testing.T) {
	svc, s := newTestService(t, nil)
	ctx := context.Background()

	book, err := svc.Create(ctx, "alice", validFields())
	require.NoError(t, err)
	require.NotEmpty(t, book.ID)

	got, err := s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Uploader)
	assert.Equal(t, models.ImageStatusNone, got.ImageStatus, "no scheduler means no image check")
}

func TestUploaderImmutableAcrossUpdates(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	book, err := svc.Create(ctx, "alice", validFields())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", book.ID, Fields{Title: ptr("Dune Messiah")})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Frank Herbert", updated.Author, "absent fields keep stored values")
	assert.Equal(t, "alice", updated.Uploader)

	got, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Uploader)
	assert.True(t, !got.UpdatedAt.Before(got.CreatedAt))
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	book, err := svc.Create(ctx, "alice", validFields())
	require.NoError(t, err)

	_, err = svc.Update(ctx, "bob", book.ID, Fields{Title: ptr("Hijacked")})
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	err = svc.Delete(ctx, "bob", book.ID)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	got, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title, "denied update must not be applied")

	require.NoError(t, svc.Delete(ctx, "alice", book.ID))
	_, err = svc.Get(ctx, book.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.EqualError(t, err, MsgNotFound)
}

func TestUpdateMissingBookAndEmptyFields(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, "alice", "missing", Fields{Title: ptr("x")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(ctx, "alice", "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	book, err := svc.Create(ctx, "alice", validFields())
	require.NoError(t, err)
	_, err = svc.Update(ctx, "alice", book.ID, Fields{Author: ptr("")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// 所有者でなければ入力検証より先に 403
	_, err = svc.Update(ctx, "bob", book.ID, Fields{Author: ptr("")})
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
}

func TestImageCheckScheduling(t *testing.T) {
	sched := &fakeScheduler{}
	svc, s := newTestService(t, sched)
	ctx := context.Background()

	in := validFields()
	in.ImageURL = ptr("https://img.example.com/dune.png")
	book, err := svc.Create(ctx, "alice", in)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusPending, book.ImageStatus)
	require.Equal(t, []scheduled{{book.ID, "https://img.example.com/dune.png"}}, sched.calls)

	// image_url が変わらない更新では投入しない
	_, err = svc.Update(ctx, "alice", book.ID, Fields{ImageURL: ptr("https://img.example.com/dune.png"), Title: ptr("Dune")})
	require.NoError(t, err)
	assert.Len(t, sched.calls, 1)

	updated, err := svc.Update(ctx, "alice", book.ID, Fields{ImageURL: ptr("https://img.example.com/v2.png")})
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusPending, updated.ImageStatus)
	assert.Len(t, sched.calls, 2)

	updated, err = svc.Update(ctx, "alice", book.ID, Fields{ImageURL: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusNone, updated.ImageStatus)
	assert.Len(t, sched.calls, 2)

	got, err := s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)
}

func TestSchedulingFailureDoesNotFailRequest(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("redis down")}
	svc, s := newTestService(t, sched)
	ctx := context.Background()

	in := validFields()
	in.ImageURL = ptr("https://img.example.com/dune.png")
	book, err := svc.Create(ctx, "alice", in)
	require.NoError(t, err)

	got, err := s.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusNone, got.ImageStatus)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", validFields())
	require.NoError(t, err)
	other := validFields()
	other.Title, other.Genre = ptr("Emma"), ptr("Romance")
	_, err = svc.Create(ctx, "bob", other)
	require.NoError(t, err)

	all, err := svc.List(ctx, models.BookFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	romance, err := svc.List(ctx, models.BookFilter{Genre: "romance"})
	require.NoError(t, err)
	require.Len(t, romance, 1)
	assert.Equal(t, "bob", romance[0].Uploader)
}
