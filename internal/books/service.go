// Package books は書籍の登録・閲覧・更新・削除を提供します。
// 更新と削除は登録者本人のみが行えます。
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/auth"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

// クライアントに返すメッセージ
const (
	MsgMissingFields = "Missing required fields!"
	MsgNotFound      = "Book not found!"
	MsgCreated       = "Book added successfully!"
	MsgUpdated       = "Book updated successfully!"
	MsgDeleted       = "Book deleted successfully!"
)

// ImageCheckScheduler は画像確認ジョブをキューに投入するためのインターフェースです。
type ImageCheckScheduler interface {
	Schedule(ctx context.Context, bookID, imageURL string) error
}

// Fields は書籍の入力値です。nil のフィールドは未指定を表します。
type Fields struct {
	Title       *string
	Author      *string
	Genre       *string
	Description *string
	ImageURL    *string
}

// Service は書籍の操作を提供します。
type Service struct {
	books     store.BookStore
	scheduler ImageCheckScheduler
	log       logging.Logger
	now       func() time.Time
}

// NewService は Service を作成します。scheduler が nil の場合は画像確認を行いません。
func NewService(books store.BookStore, scheduler ImageCheckScheduler, log logging.Logger) *Service {
	return &Service{
		books:     books,
		scheduler: scheduler,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create は actor を登録者として書籍を作成します。
// title, author, genre, description は必須で、image_url は任意です。
func (s *Service) Create(ctx context.Context, actor string, in Fields) (*models.Book, error) {
	title, author := value(in.Title), value(in.Author)
	genre, description := value(in.Genre), value(in.Description)
	if title == "" || author == "" || genre == "" || description == "" {
		return nil, apperr.Validation(MsgMissingFields)
	}

	now := s.now()
	book := &models.Book{
		Title:       title,
		Author:      author,
		Genre:       genre,
		Description: description,
		ImageURL:    value(in.ImageURL),
		Uploader:    actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if book.ImageURL != "" && s.scheduler != nil {
		book.ImageStatus = models.ImageStatusPending
	}

	if err := s.books.InsertBook(ctx, book); err != nil {
		return nil, apperr.Internal(fmt.Errorf("insert book: %w", err))
	}
	s.log.Info(ctx, "book created", "book_id", book.ID, "uploader", actor)

	if book.ImageStatus == models.ImageStatusPending {
		s.scheduleImageCheck(ctx, book.ID, book.ImageURL)
	}
	return book, nil
}

// List は条件に一致する書籍を作成日時の昇順で返します。
func (s *Service) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	books, err := s.books.ListBooks(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list books: %w", err))
	}
	return books, nil
}

// Get は書籍を返します。
func (s *Service) Get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.books.FindBook(ctx, id)
	if err != nil {
		return nil, storeError(err, "find book")
	}
	return book, nil
}

// Update は指定されたフィールドのみを更新します。uploader は変更されません。
func (s *Service) Update(ctx context.Context, actor, id string, in Fields) (*models.Book, error) {
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	for _, f := range []*string{in.Title, in.Author, in.Genre, in.Description} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return nil, apperr.Validation(MsgMissingFields)
		}
	}

	patch := models.BookPatch{
		Title:       trimmed(in.Title),
		Author:      trimmed(in.Author),
		Genre:       trimmed(in.Genre),
		Description: trimmed(in.Description),
		ImageURL:    trimmed(in.ImageURL),
	}

	schedule := false
	if patch.ImageURL != nil && *patch.ImageURL != current.ImageURL {
		status := models.ImageStatusNone
		if *patch.ImageURL != "" && s.scheduler != nil {
			status = models.ImageStatusPending
			schedule = true
		}
		patch.ImageStatus = &status
	}

	updated, err := s.books.UpdateBook(ctx, id, patch, s.now())
	if err != nil {
		return nil, storeError(err, "update book")
	}
	s.log.Info(ctx, "book updated", "book_id", id, "actor", actor)

	if schedule {
		s.scheduleImageCheck(ctx, updated.ID, updated.ImageURL)
	}
	return updated, nil
}

// Delete は書籍を削除します。
func (s *Service) Delete(ctx context.Context, actor, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.books.DeleteBook(ctx, id); err != nil {
		return storeError(err, "delete book")
	}
	s.log.Info(ctx, "book deleted", "book_id", id, "actor", actor)
	return nil
}

// authorize は書籍を取得し、actor が登録者であることを確認します。
func (s *Service) authorize(ctx context.Context, actor, id string) (*models.Book, error) {
	if actor == "" {
		return nil, apperr.Unauthenticated(auth.MsgLoginRequired)
	}
	book, err := s.books.FindBook(ctx, id)
	if err != nil {
		return nil, storeError(err, "find book")
	}
	if err := auth.AuthorizeOwnership(book, actor); err != nil {
		return nil, err
	}
	return book, nil
}

// scheduleImageCheck はジョブを投入します。失敗してもリクエストは失敗させず、
// 状態を未確認に戻します。
func (s *Service) scheduleImageCheck(ctx context.Context, bookID, imageURL string) {
	err := s.scheduler.Schedule(ctx, bookID, imageURL)
	if err == nil {
		return
	}
	s.log.Warn(ctx, "failed to schedule image check", "book_id", bookID, "error", err.Error())
	if err := s.books.SetImageStatus(ctx, bookID, imageURL, models.ImageStatusNone); err != nil &&
		!errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrStale) {
		s.log.Warn(ctx, "failed to reset image status", "book_id", bookID, "error", err.Error())
	}
}

func storeError(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgNotFound)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
