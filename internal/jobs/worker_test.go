package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

type stubProber struct {
	status models.ImageStatus
	err    error
	urls   []string
}

func (s *stubProber) Probe(_ context.Context, rawURL string) (models.ImageStatus, error) {
	s.urls = append(s.urls, rawURL)
	return s.status, s.err
}

type failingWriter struct{ err error }

func (f failingWriter) SetImageStatus(context.Context, string, string, models.ImageStatus) error {
	return f.err
}

func seedBook(t *testing.T, s *store.MemoryStore, imageURL string) *models.Book {
	t.Helper()
	b := &models.Book{
		Title:       "Dune",
		Author:      "Herbert",
		Uploader:    "alice",
		ImageURL:    imageURL,
		ImageStatus: models.ImageStatusPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.InsertBook(context.Background(), b))
	return b
}

func task(t *testing.T, p TaskPayload) *asynq.Task {
	t.Helper()
	tk, err := NewImageCheckTask(&p)
	require.NoError(t, err)
	return tk
}

func TestProcessTaskRecordsStatus(t *testing.T) {
	s := store.NewMemoryStore()
	b := seedBook(t, s, "https://img.example.com/dune.png")
	prober := &stubProber{status: models.ImageStatusOK}
	h := NewImageCheckHandler(s, prober, logging.Discard())

	err := h.ProcessTask(context.Background(), task(t, TaskPayload{BookID: b.ID, ImageURL: b.ImageURL}))
	require.NoError(t, err)

	got, err := s.FindBook(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusOK, got.ImageStatus)
	assert.Equal(t, []string{b.ImageURL}, prober.urls)
}

func TestProcessTaskRecordsUnreachable(t *testing.T) {
	s := store.NewMemoryStore()
	b := seedBook(t, s, "https://img.example.com/gone.png")
	h := NewImageCheckHandler(s, &stubProber{status: models.ImageStatusUnreachable, err: errors.New("dial tcp: timeout")}, logging.Discard())

	require.NoError(t, h.ProcessTask(context.Background(), task(t, TaskPayload{BookID: b.ID, ImageURL: b.ImageURL})))

	got, err := s.FindBook(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusUnreachable, got.ImageStatus)
}

func TestProcessTaskDiscardsStaleResult(t *testing.T) {
	s := store.NewMemoryStore()
	b := seedBook(t, s, "https://img.example.com/new.png")
	h := NewImageCheckHandler(s, &stubProber{status: models.ImageStatusNotImage}, logging.Discard())

	err := h.ProcessTask(context.Background(), task(t, TaskPayload{BookID: b.ID, ImageURL: "https://img.example.com/old.png"}))
	require.NoError(t, err)

	got, err := s.FindBook(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusPending, got.ImageStatus)

	err = h.ProcessTask(context.Background(), task(t, TaskPayload{BookID: "deleted", ImageURL: "https://img.example.com/x.png"}))
	require.NoError(t, err)
}

func TestProcessTaskRetriesStoreFailure(t *testing.T) {
	h := NewImageCheckHandler(failingWriter{err: errors.New("connection refused")}, &stubProber{status: models.ImageStatusOK}, logging.Discard())

	err := h.ProcessTask(context.Background(), task(t, TaskPayload{BookID: "b1", ImageURL: "https://img.example.com/x.png"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessTaskSkipsRetryOnBadPayload(t *testing.T) {
	h := NewImageCheckHandler(store.NewMemoryStore(), &stubProber{}, logging.Discard())

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskTypeImageCheck, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "got %v", err)

	body, _ := json.Marshal(TaskPayload{BookID: "b1"})
	err = h.ProcessTask(context.Background(), asynq.NewTask(TaskTypeImageCheck, body))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "got %v", err)
}

func TestNewImageCheckTask(t *testing.T) {
	tk, err := NewImageCheckTask(&TaskPayload{BookID: "b1", ImageURL: "https://img.example.com/x.png"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeImageCheck, tk.Type())
	assert.JSONEq(t, `{"bookId":"b1","imageUrl":"https://img.example.com/x.png"}`, string(tk.Payload()))

	_, err = NewImageCheckTask(nil)
	assert.Error(t, err)
	_, err = NewImageCheckTask(&TaskPayload{ImageURL: "x"})
	assert.Error(t, err)
}

func TestNewManagerRejectsBadRedisURL(t *testing.T) {
	h := NewImageCheckHandler(store.NewMemoryStore(), &stubProber{}, logging.Discard())

	_, err := NewManager(Options{RedisURL: "http://not-redis"}, h, logging.Discard())
	assert.Error(t, err)

	_, err = NewManager(Options{RedisURL: "redis://127.0.0.1:6379/0"}, nil, logging.Discard())
	assert.Error(t, err)
}

func TestTaskTimeout(t *testing.T) {
	assert.Equal(t, 15*time.Second, taskTimeout(0))
	assert.Equal(t, 12*time.Second, taskTimeout(2*time.Second))
}
