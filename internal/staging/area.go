package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the lock file kept at the root of a scratch directory.
const LockFileName = ".mediasieve.lock"

const lockRetryDelay = 100 * time.Millisecond

// Area is a scratch directory shared by concurrent transcodes. Each running
// transcode holds a shared lock; the stale sweep needs the exclusive lock so
// it never removes a file that a live process is still writing.
type Area struct {
	dir string
}

// NewArea returns the staging area rooted at dir, creating it when missing.
func NewArea(dir string) (*Area, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("staging directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Area{dir: abs}, nil
}

// Dir returns the absolute scratch directory.
func (a *Area) Dir() string {
	return a.dir
}

// LockPath returns the lock file location.
func (a *Area) LockPath() string {
	return filepath.Join(a.dir, LockFileName)
}

// Lease is a held shared lock on an Area.
type Lease struct {
	lock *flock.Flock
}

// Release drops the shared lock. Calling it more than once is harmless.
func (l *Lease) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	return err
}

// Acquire takes a shared lock, waiting while a sweep holds the exclusive one.
func (a *Area) Acquire(ctx context.Context) (*Lease, error) {
	lock := flock.New(a.LockPath())
	ok, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock staging area: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock staging area: not acquired")
	}
	return &Lease{lock: lock}, nil
}
