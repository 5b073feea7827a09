package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"web_ranker/internal/models"
)

const DefaultSearchLimit = 10

var ErrNotFound = errors.New("document not in index")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			name TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			authority REAL NOT NULL,
			duplicates TEXT NOT NULL,
			run_id TEXT NOT NULL,
			indexed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_authority ON entries(authority DESC)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to execute schema query (%s): %w", q, err)
		}
	}
	return nil
}

// Index swaps the table contents for entries in one transaction.
func (s *SQLiteStore) Index(ctx context.Context, entries []models.IndexEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(name, url, title, body, authority, duplicates, run_id, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.Name, e.URL, e.Title, e.Body, e.Authority, e.DuplicatesField(), e.RunID, now)
		if err != nil {
			return fmt.Errorf("insert %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// Search returns entries whose title or body contains every query term,
// highest authority first.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var where []string
	var args []interface{}
	for _, term := range strings.Fields(strings.ToLower(query)) {
		pattern := "%" + escapeLike(term) + "%"
		where = append(where, `(lower(title) LIKE ? ESCAPE '\' OR lower(body) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	q := `SELECT name, url, title, body, authority, duplicates, run_id, indexed_at FROM entries`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY authority DESC, name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (*Hit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, url, title, body, authority, duplicates, run_id, indexed_at
		FROM entries WHERE name = ?`, name)
	h, err := scanHit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHit(row scanner) (Hit, error) {
	var h Hit
	var dups string
	err := row.Scan(&h.Name, &h.URL, &h.Title, &h.Body, &h.Authority, &dups, &h.RunID, &h.IndexedAt)
	if err != nil {
		return Hit{}, err
	}
	if dups != "" {
		h.Duplicates = strings.Split(dups, ",")
	}
	return h, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
