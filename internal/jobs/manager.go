package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/book-catalog/internal/logging"
)

// Manager はジョブの投入とワーカーの起動を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	log    logging.Logger

	taskOpts []asynq.Option
}

// Options は Manager の設定です。
type Options struct {
	RedisURL    string
	Concurrency int
	TaskTimeout time.Duration
	MaxRetry    int
}

// NewManager は Manager を初期化します。
func NewManager(opts Options, handler *ImageCheckHandler, log logging.Logger) (*Manager, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}
	redisOpt, err := asynq.ParseRedisURI(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 3
	}

	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: opts.Concurrency,
			Queues: map[string]int{
				queueImages: 1,
			},
			Logger: asynqLogger{log: log},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeImageCheck, handler)

	return &Manager{
		client: client,
		server: server,
		mux:    mux,
		log:    log,
		taskOpts: []asynq.Option{
			asynq.MaxRetry(opts.MaxRetry),
			asynq.Timeout(taskTimeout(opts.TaskTimeout)),
		},
	}, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.log.Error(context.Background(), "asynq server stopped with error", "error", err.Error())
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Enqueue は画像確認ジョブをキューに投入し、タスク ID を返します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	task, err := NewImageCheckTask(payload, m.taskOpts...)
	if err != nil {
		return "", err
	}
	info, err := m.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// taskTimeout は取得のタイムアウトに書き込みの余裕を加えます。
func taskTimeout(probe time.Duration) time.Duration {
	if probe <= 0 {
		probe = 5 * time.Second
	}
	return probe + 10*time.Second
}
