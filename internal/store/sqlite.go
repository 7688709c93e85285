package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// SQLiteRepo implements Repo on an embedded SQLite database. Every write is
// its own statement, so an insertion is durable once Add returns.
type SQLiteRepo struct{ db *sqlx.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Contains(ctx context.Context, id domain.UserID) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)`, int64(id))
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// Add inserts the user unless it is already known. The conflict clause keeps
// the check and the insert in one statement.
func (r *SQLiteRepo) Add(ctx context.Context, id domain.UserID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, created_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		int64(id), time.Now().UTC().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteRepo) All(ctx context.Context) ([]domain.UserID, error) {
	var raw []int64
	if err := r.db.SelectContext(ctx, &raw,
		`SELECT user_id FROM users ORDER BY created_at ASC, rowid ASC`); err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, len(raw))
	for i, v := range raw {
		ids[i] = domain.UserID(v)
	}
	return ids, nil
}
