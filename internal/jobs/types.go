package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeImageCheck は書籍画像の確認ジョブです。
const TaskTypeImageCheck = "book:image-check"

const queueImages = "images"

// TaskPayload は画像確認ジョブのペイロードです。
// ImageURL は投入時点の値で、処理時に書籍の値と一致する場合のみ結果を反映します。
type TaskPayload struct {
	BookID   string `json:"bookId"`
	ImageURL string `json:"imageUrl"`
}

func (p *TaskPayload) validate() error {
	if p.BookID == "" {
		return fmt.Errorf("missing bookId in payload")
	}
	if p.ImageURL == "" {
		return fmt.Errorf("missing imageUrl in payload")
	}
	return nil
}

// NewImageCheckTask はペイロードから asynq のタスクを作成します。
func NewImageCheckTask(payload *TaskPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(queueImages)}, opts...)
	return asynq.NewTask(TaskTypeImageCheck, body, opts...), nil
}
