package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"mediasieve/internal/logging"
)

// ErrBusy reports that a transcode holds the staging area.
var ErrBusy = errors.New("staging area in use")

// SweepResult contains the outcome of a stale file sweep.
type SweepResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Sweep removes scratch entries older than maxAge. It returns ErrBusy without
// touching anything while any lease is held.
func (a *Area) Sweep(ctx context.Context, maxAge time.Duration, logger *slog.Logger) (SweepResult, error) {
	lock := flock.New(a.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return SweepResult{}, fmt.Errorf("lock staging area: %w", err)
	}
	if !ok {
		return SweepResult{}, ErrBusy
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return cleanStale(ctx, a.dir, maxAge, logger), nil
}

func cleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	logger = logging.NewComponentLogger(logger, "staging")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: ctx.Err()})
			return result
		}
		if entry.Name() == LockFileName {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale scratch entry", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.scratch_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale scratch entry",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
	return result
}

// EntryInfo describes one item in the scratch directory.
type EntryInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns the scratch entries, excluding the lock file.
func (a *Area) List() ([]EntryInfo, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []EntryInfo
	for _, entry := range entries {
		if entry.Name() == LockFileName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(a.dir, entry.Name())
		size := info.Size()
		if entry.IsDir() {
			size, _ = dirSize(path)
		}
		out = append(out, EntryInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return out, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
