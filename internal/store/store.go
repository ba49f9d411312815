// Package store provides the SQLite-backed prompt library.
//
// Prompts are deduplicated by content hash: saving the same text twice
// returns the existing record instead of inserting a duplicate.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a prompt lookup matches no row.
var ErrNotFound = errors.New("prompt not found")

// Prompt is a saved prompt document.
type Prompt struct {
	ID          string
	Title       string
	Content     string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListOpts controls pagination for List.
type ListOpts struct {
	Limit  int
	Offset int
}

// Store is the prompt library interface.
type Store interface {
	// Save inserts a prompt, or returns the existing one when content
	// with the same hash is already stored. The bool reports whether a
	// new row was created.
	Save(ctx context.Context, title, content string) (*Prompt, bool, error)
	Get(ctx context.Context, id string) (*Prompt, error)
	FindByHash(ctx context.Context, hash string) (*Prompt, error)
	List(ctx context.Context, opts ListOpts) ([]*Prompt, error)
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

const defaultListLimit = 50

// Open creates or opens the prompt database at dbPath.
// Pass ":memory:" for in-memory databases (testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path is empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_updated_at ON prompts(updated_at);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("creating prompts table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, title, content string) (*Prompt, bool, error) {
	if strings.TrimSpace(content) == "" {
		return nil, false, fmt.Errorf("prompt content is empty")
	}

	hash := HashPromptContent(content)
	if existing, err := s.FindByHash(ctx, hash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	p := &Prompt{
		ID:          uuid.NewString(),
		Title:       title,
		Content:     content,
		ContentHash: hash,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (id, title, content, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, p.ContentHash, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("inserting prompt: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, now)
	p.UpdatedAt = p.CreatedAt
	return p, true, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, content_hash, created_at, updated_at
		 FROM prompts WHERE id = ?`, id)
	return scanPrompt(row)
}

func (s *SQLiteStore) FindByHash(ctx context.Context, hash string) (*Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, content_hash, created_at, updated_at
		 FROM prompts WHERE content_hash = ?`, hash)
	return scanPrompt(row)
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOpts) ([]*Prompt, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, content_hash, created_at, updated_at
		 FROM prompts ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	var out []*Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Rename(ctx context.Context, id, title string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE prompts SET title = ?, updated_at = ? WHERE id = ?`, title, now, id)
	if err != nil {
		return fmt.Errorf("renaming prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting prompts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*Prompt, error) {
	var p Prompt
	var created, updated string
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.ContentHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning prompt: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &p, nil
}

// ValidateID reports whether id looks like a prompt ID we issued.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid prompt id %q: %w", id, err)
	}
	return nil
}
