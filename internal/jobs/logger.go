package jobs

import (
	"context"
	"fmt"
	"os"

	"github.com/yourusername/book-catalog/internal/logging"
)

// asynqLogger は asynq.Logger を logging.Logger に橋渡しします。
type asynqLogger struct {
	log logging.Logger
}

func (l asynqLogger) Debug(args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Info(args ...interface{}) {
	l.log.Info(context.Background(), fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Warn(args ...interface{}) {
	l.log.Warn(context.Background(), fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Error(args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
