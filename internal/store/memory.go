package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/book-catalog/internal/models"
)

// MemoryStore はプロセス内メモリのストアです。開発とテストで使用します。
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	books map[string]models.Book
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
		books: make(map[string]models.Book),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return ErrDuplicate
	}
	s.users[user.Username] = *user
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) InsertBook(_ context.Context, book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = uuid.NewString()
	s.books[book.ID] = *book
	return nil
}

func (s *MemoryStore) FindBook(_ context.Context, id string) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) ListBooks(_ context.Context, filter models.BookFilter) ([]models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		if filter.Match(&b) {
			out = append(out, b)
		}
	}
	SortBooks(out)
	return out, nil
}

func (s *MemoryStore) UpdateBook(_ context.Context, id string, patch models.BookPatch, updatedAt time.Time) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&b, updatedAt)
	s.books[id] = b
	return &b, nil
}

func (s *MemoryStore) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) SetImageStatus(_ context.Context, id, imageURL string, status models.ImageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	if b.ImageURL != imageURL {
		return ErrStale
	}
	b.ImageStatus = status
	s.books[id] = b
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// SortBooks は作成日時の昇順（同時刻は ID 順）に並べ替えます。
func SortBooks(books []models.Book) {
	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.Before(books[j].CreatedAt)
		}
		return books[i].ID < books[j].ID
	})
}
