package probestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediasieve/internal/cache"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the table layout changes. Users clear the store
// with "mediasieve cache clear" or by deleting the file after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible version.
var ErrSchemaMismatch = errors.New("probe store schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is a SQLite-backed probe result store.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Stats summarizes the store contents.
type Stats struct {
	Path       string    `json:"path"`
	Entries    int       `json:"entries"`
	Bytes      int64     `json:"bytes"`
	Hits       int64     `json:"hits"`
	MaxEntries int       `json:"max_entries"`
	Oldest     time.Time `json:"oldest,omitzero"`
	Newest     time.Time `json:"newest,omitzero"`
}

// Open creates or opens the store at path. maxEntries bounds the row count
// after each save; zero disables pruning.
func Open(path string, maxEntries int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("probe store path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create probe store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, maxEntries: maxEntries}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Lookup returns the payload stored under key.
func (s *Store) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	hashed := cache.Key(key)
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM probe_results WHERE key = ?", hashed).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup probe result: %w", err)
	}
	// Hit accounting is best effort; a busy database must not turn a hit into a miss.
	_ = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			"UPDATE probe_results SET accessed_at = ?, hits = hits + 1 WHERE key = ?",
			time.Now().UnixNano(), hashed)
		return execErr
	})
	return payload, true, nil
}

// Save stores payload under key, replacing any previous value, then prunes
// the store to its configured bound.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	now := time.Now().UnixNano()
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO probe_results (key, payload, created_at, accessed_at, hits)
			 VALUES (?, ?, ?, ?, 0)
			 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at, accessed_at = excluded.accessed_at`,
			cache.Key(key), payload, now, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save probe result: %w", err)
	}
	if s.maxEntries > 0 {
		if _, err := s.Prune(ctx, s.maxEntries); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes the oldest rows until at most keep remain and returns the
// number of rows removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`DELETE FROM probe_results WHERE key IN (
				SELECT key FROM probe_results ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?
			)`, keep)
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune probe results: %w", err)
	}
	return removed, nil
}

// Clear deletes every stored result.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM probe_results")
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear probe results: %w", err)
	}
	return removed, nil
}

// Stats reports row counts and payload volume.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path, MaxEntries: s.maxEntries}
	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(LENGTH(payload)), 0), COALESCE(SUM(hits), 0), MIN(created_at), MAX(created_at)
		 FROM probe_results`,
	).Scan(&stats.Entries, &stats.Bytes, &stats.Hits, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("probe store stats: %w", err)
	}
	if oldest.Valid {
		stats.Oldest = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		stats.Newest = time.Unix(0, newest.Int64)
	}
	return stats, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
