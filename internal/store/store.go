// Package store はユーザーと書籍を保存するドキュメントストアのインターフェースを定義します。
// 実装はサブパッケージ（memory はこのパッケージ）にあります。
package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/book-catalog/internal/models"
)

var (
	// ErrNotFound はドキュメントが存在しないことを表します。
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate は一意キーの重複を表します。
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStale は条件付き更新の前提が変わっていたことを表します。
	ErrStale = errors.New("store: document changed")
)

// UserStore はユーザードキュメントを扱います。
type UserStore interface {
	// CreateUser はユーザーを挿入します。username が既に存在する場合は ErrDuplicate を返します。
	// 一意性はストア側で原子的に保証されます。
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, username string) (*models.User, error)
}

// BookStore は書籍ドキュメントを扱います。
type BookStore interface {
	// InsertBook は book を挿入し、ストアが採番した ID を book.ID に設定します。
	InsertBook(ctx context.Context, book *models.Book) error
	FindBook(ctx context.Context, id string) (*models.Book, error)
	// ListBooks は作成日時の昇順で返します。
	ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	// UpdateBook は patch を原子的に適用し、更新後のドキュメントを返します。
	UpdateBook(ctx context.Context, id string, patch models.BookPatch, updatedAt time.Time) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	// SetImageStatus は image_url が imageURL と一致する場合のみ image_status を更新します。
	// 書籍がなければ ErrNotFound、image_url が変わっていれば ErrStale を返します。
	SetImageStatus(ctx context.Context, id, imageURL string, status models.ImageStatus) error
}

// Store はアプリケーションが使用するドキュメントストアです。
type Store interface {
	UserStore
	BookStore
	Ping(ctx context.Context) error
	Close() error
}
