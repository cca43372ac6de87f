// Package sqlitestore は SQLite (mattn/go-sqlite3) を使う store.Store の実装です。
// ローカル開発や単一ノード構成向けです。
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const bookColumns = "id, title, author, genre, description, image_url, uploader, image_status, created_at, updated_at"

// Store は SQLite 上のドキュメントストアです。
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open は path のデータベースを開き、マイグレーションを適用します。
// 親ディレクトリが存在しない場合は作成します。
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 書き込みを直列化する
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate は埋め込みマイグレーションを適用します。
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, user.CreatedAt.UnixNano(),
	)
	if isConstraintViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	var (
		u       models.User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = fromNanos(created)
	return &u, nil
}

func (s *Store) InsertBook(ctx context.Context, book *models.Book) error {
	book.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Author, book.Genre, book.Description, book.ImageURL,
		book.Uploader, string(book.ImageStatus), book.CreatedAt.UnixNano(), book.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *Store) FindBook(ctx context.Context, id string) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	where, args := whereClause(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		if filter.Match(b) {
			out = append(out, *b)
		}
	}
	return out, rows.Err()
}

func (s *Store) UpdateBook(ctx context.Context, id string, patch models.BookPatch, updatedAt time.Time) (*models.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBook(tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	patch.Apply(b, updatedAt)
	_, err = tx.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, genre = ?, description = ?, image_url = ?,
			image_status = ?, updated_at = ? WHERE id = ?`,
		b.Title, b.Author, b.Genre, b.Description, b.ImageURL,
		string(b.ImageStatus), b.UpdatedAt.UnixNano(), id,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) SetImageStatus(ctx context.Context, id, imageURL string, status models.ImageStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET image_status = ? WHERE id = ? AND image_url = ?`,
		string(status), id, imageURL,
	)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err == nil {
		return nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrStale
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*models.Book, error) {
	var (
		b                models.Book
		status           string
		created, updated int64
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description, &b.ImageURL,
		&b.Uploader, &status, &created, &updated); err != nil {
		return nil, err
	}
	b.ImageStatus = models.ImageStatus(status)
	b.CreatedAt = fromNanos(created)
	b.UpdatedAt = fromNanos(updated)
	return &b, nil
}

// whereClause は uploader のみを SQL で絞り込みます。
// SQLite の lower() は ASCII しか変換しないため、genre と q は filter.Match で判定します。
func whereClause(f models.BookFilter) (string, []any) {
	if f.Uploader == "" {
		return "", nil
	}
	return " WHERE uploader = ?", []any{f.Uploader}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
