// Package jobs は書籍画像の非同期確認ジョブを提供します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

// Prober は URL の内容を判定します。
type Prober interface {
	Probe(ctx context.Context, rawURL string) (models.ImageStatus, error)
}

// StatusWriter は判定結果を書籍に反映します。
type StatusWriter interface {
	SetImageStatus(ctx context.Context, id, imageURL string, status models.ImageStatus) error
}

// ImageCheckHandler は TaskTypeImageCheck のタスクを処理します。
type ImageCheckHandler struct {
	books  StatusWriter
	prober Prober
	log    logging.Logger
}

// NewImageCheckHandler は ImageCheckHandler を作成します。
func NewImageCheckHandler(books StatusWriter, prober Prober, log logging.Logger) *ImageCheckHandler {
	return &ImageCheckHandler{books: books, prober: prober, log: log}
}

// ProcessTask は asynq.Handler の実装です。
// 書籍が削除済み、または image_url が変わっている場合は結果を捨てて成功扱いにします。
func (h *ImageCheckHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := h.log.With("book_id", payload.BookID)

	status, probeErr := h.prober.Probe(ctx, payload.ImageURL)
	if probeErr != nil {
		log.Info(ctx, "image probe failed", "status", string(status), "error", probeErr.Error())
	}

	err := h.books.SetImageStatus(ctx, payload.BookID, payload.ImageURL, status)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStale):
		log.Debug(ctx, "image check result discarded", "reason", err.Error())
		return nil
	case err != nil:
		return fmt.Errorf("set image status: %w", err)
	}

	log.Info(ctx, "image checked", "status", string(status))
	return nil
}
