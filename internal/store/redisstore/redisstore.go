// Package redisstore は Redis をドキュメントストアとして使う store.Store の実装です。
//
// キー構成:
//
//	<prefix>user:<username>  ユーザー (JSON, SETNX で一意性を保証)
//	<prefix>book:<id>        書籍 (JSON)
//	<prefix>books:index      作成日時をスコアとする書籍 ID の sorted set
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

// DefaultPrefix はキーの既定プレフィックスです。
const DefaultPrefix = "bc:"

const maxWatchRetries = 16

// Store は Redis 上のドキュメントストアです。
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// New は既存のクライアントから Store を作成します。Close はクライアントを閉じます。
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Open は redis:// URL に接続し、疎通を確認します。
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, DefaultPrefix), nil
}

// Client は内部の Redis クライアントを返します。セッションストアと共有するために使用します。
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// userRecord は PasswordHash を含めて保存するための表現です。
type userRecord struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	payload, err := json.Marshal(userRecord{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.userKey(user.Username), payload, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrDuplicate
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	data, err := s.rdb.Get(ctx, s.userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", username, err)
	}
	return &models.User{
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *Store) InsertBook(ctx context.Context, book *models.Book) error {
	book.ID = uuid.NewString()
	payload, err := json.Marshal(book)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.bookKey(book.ID), payload, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(book.CreatedAt.UnixMicro()),
			Member: book.ID,
		})
		return nil
	})
	return err
}

func (s *Store) FindBook(ctx context.Context, id string) (*models.Book, error) {
	data, err := s.rdb.Get(ctx, s.bookKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return decodeBook(data)
}

func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Book, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.bookKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		// 削除と一覧取得が競合した場合は nil になる
		raw, ok := v.(string)
		if !ok {
			continue
		}
		b, err := decodeBook([]byte(raw))
		if err != nil {
			return nil, err
		}
		if filter.Match(b) {
			out = append(out, *b)
		}
	}
	store.SortBooks(out)
	return out, nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, patch models.BookPatch, updatedAt time.Time) (*models.Book, error) {
	return s.mutateBook(ctx, id, func(b *models.Book) error {
		patch.Apply(b, updatedAt)
		return nil
	})
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.bookKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetImageStatus(ctx context.Context, id, imageURL string, status models.ImageStatus) error {
	_, err := s.mutateBook(ctx, id, func(b *models.Book) error {
		if b.ImageURL != imageURL {
			return store.ErrStale
		}
		b.ImageStatus = status
		return nil
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// mutateBook は WATCH/MULTI で書籍を読み取り、mutate を適用して書き戻します。
// 他のクライアントと競合した場合は再試行します。
func (s *Store) mutateBook(ctx context.Context, id string, mutate func(*models.Book) error) (*models.Book, error) {
	key := s.bookKey(id)
	var result *models.Book

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return store.ErrNotFound
			}
			return err
		}
		b, err := decodeBook(data)
		if err != nil {
			return err
		}
		if err := mutate(b); err != nil {
			return err
		}
		payload, err := json.Marshal(b)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			result = b
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("update book %s: too many concurrent writers", id)
}

func decodeBook(data []byte) (*models.Book, error) {
	var b models.Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode book: %w", err)
	}
	return &b, nil
}

func (s *Store) userKey(username string) string { return s.prefix + "user:" + username }
func (s *Store) bookKey(id string) string       { return s.prefix + "book:" + id }
func (s *Store) indexKey() string               { return s.prefix + "books:index" }
