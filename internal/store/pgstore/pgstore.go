// Package pgstore は PostgreSQL (pgx stdlib ドライバ) を使う store.Store の実装です。
// スキーマは goose の埋め込みマイグレーションで管理します。
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/book-catalog/internal/models"
	"github.com/yourusername/book-catalog/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation は PostgreSQL の unique_violation です。
const uniqueViolation = "23505"

const bookColumns = "id, title, author, genre, description, image_url, uploader, image_status, created_at, updated_at"

// Store は PostgreSQL 上のドキュメントストアです。
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New は既存の接続から Store を作成します。マイグレーションは行いません。
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open は dsn に接続し、マイグレーションを適用します。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return New(db), nil
}

// Migrate は埋め込みマイグレーションを適用します。
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)`,
		user.Username, user.PasswordHash, user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (s *Store) InsertBook(ctx context.Context, book *models.Book) error {
	book.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		book.ID, book.Title, book.Author, book.Genre, book.Description, book.ImageURL,
		book.Uploader, string(book.ImageStatus), book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindBook(ctx context.Context, id string) (*models.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	where, args := whereClause(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBook(ctx context.Context, id string, patch models.BookPatch, updatedAt time.Time) (*models.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBook(tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	patch.Apply(b, updatedAt)
	_, err = tx.ExecContext(ctx,
		`UPDATE books SET title = $2, author = $3, genre = $4, description = $5, image_url = $6,
			image_status = $7, updated_at = $8 WHERE id = $1`,
		id, b.Title, b.Author, b.Genre, b.Description, b.ImageURL, string(b.ImageStatus), b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetImageStatus は条件付き UPDATE を行い、対象がなければ存在確認で ErrNotFound と ErrStale を区別します。
func (s *Store) SetImageStatus(ctx context.Context, id, imageURL string, status models.ImageStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET image_status = $1 WHERE id = $2 AND image_url = $3`,
		string(status), id, imageURL,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return store.ErrNotFound
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
		b      models.Book
		status string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description, &b.ImageURL,
		&b.Uploader, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ImageStatus = models.ImageStatus(status)
	return &b, nil
}

func whereClause(f models.BookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Genre != "" {
		conds = append(conds, "lower(genre) = lower("+next(f.Genre)+")")
	}
	if f.Uploader != "" {
		conds = append(conds, "uploader = "+next(f.Uploader))
	}
	if f.Query != "" {
		p := next("%" + escapeLike(f.Query) + "%")
		conds = append(conds, "(title ILIKE "+p+" OR author ILIKE "+p+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
