// Package logging は構造化ロガーのインターフェースと slog 実装を提供します。
package logging

import "context"

// Logger はコンテキスト対応の構造化ロガーです。
//
// 可変長引数はキーと値のペアとして解釈されます。
//
//	log.Info(ctx, "book created", "book_id", id, "uploader", username)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With は常に指定のキー/値を付与する子ロガーを返します。
	With(args ...any) Logger
}
