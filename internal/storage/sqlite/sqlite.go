// Package sqlite implements the storage interface over a single local
// SQLite file using the pure-Go ncruces driver. This package is the only
// code in the repo that issues SQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Store is the SQLite-backed storage implementation.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Storage = (*Store)(nil)

// New opens (creating if necessary) the database at path, applies pending
// migrations, and returns a ready Store. A migration failure is fatal to
// startup by contract; callers should exit non-zero.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, storage.Validationf("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// _txlock=immediate acquires the write lock at BEGIN, serializing
	// writers without deadlocks. WAL lets readers run concurrently.
	dsn := "file:" + url.PathEscape(path) +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(10000)" +
		"&_pragma=journal_mode(wal)" +
		"&_pragma=foreign_keys(on)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// UnderlyingDB exposes the raw connection pool for extensions and tests.
func (s *Store) UnderlyingDB() *sql.DB { return s.db }

// now returns the current time truncated to microseconds so round-trips
// through the TEXT datetime column compare equal.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// tx implements storage.Transaction over one *sql.Tx.
type tx struct {
	tx *sql.Tx
}

var _ storage.Transaction = (*tx)(nil)

// RunInTransaction executes fn inside a single database transaction.
// Commit on nil return, rollback on error or panic.
func (s *Store) RunInTransaction(ctx context.Context, fn func(t storage.Transaction) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.DatabaseError{Op: "begin transaction", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &storage.DatabaseError{Op: "commit transaction", Err: err}
	}
	committed = true
	return nil
}

func statusTable(kind types.EntityKind) (string, error) {
	switch kind {
	case types.KindProject:
		return "projects", nil
	case types.KindFeature:
		return "features", nil
	case types.KindTask:
		return "tasks", nil
	}
	return "", storage.Validationf("no status column for entity kind %s", types.WireName(kind))
}

// SetStatus updates an entity's status and refreshes modified_at inside the
// transaction.
func (t *tx) SetStatus(ctx context.Context, kind types.EntityKind, id, status string) error {
	table, err := statusTable(kind)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET status = ?, modified_at = ? WHERE id = ?", table),
		types.NormalizeStatus(status), now(), id)
	if err != nil {
		return &storage.DatabaseError{Op: "set status", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &storage.NotFoundError{Kind: types.WireName(kind), ID: id}
	}
	return nil
}

// AddRoleTransition appends one audit row inside the transaction.
func (t *tx) AddRoleTransition(ctx context.Context, rt *types.RoleTransition) error {
	return insertRoleTransition(ctx, t.tx, rt)
}

// DeleteTaskCascade removes a task, its sections, and every dependency edge
// referencing it, returning the collateral counts.
func (t *tx) DeleteTaskCascade(ctx context.Context, id string) (int, int, error) {
	return deleteTaskCascade(ctx, t.tx, id)
}

// execer abstracts *sql.DB and *sql.Tx so repository helpers can serve both
// direct calls and transactional ones.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
