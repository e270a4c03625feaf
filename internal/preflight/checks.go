package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"mediasieve/internal/config"
	"mediasieve/internal/deps"
	"mediasieve/internal/probestore"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckProbeStore opens the probe store and reports its size. A missing
// database file counts as healthy as long as its directory is writable.
func CheckProbeStore(ctx context.Context, cfg config.ProbeStore) Result {
	const name = "Probe store"

	if !cfg.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		dir := CheckDirectoryAccess(name, filepath.Dir(cfg.Path))
		if dir.Passed {
			dir.Detail = fmt.Sprintf("%s (not created yet)", cfg.Path)
		}
		return dir
	}

	store, err := probestore.Open(cfg.Path, cfg.MaxEntries)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Path, err)}
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", cfg.Path, stats.Entries)}
}

// Requirements lists the external binaries for the given config. Both the
// preflight run and the status command use it.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.Binary,
			Description: "Required for transcoding",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.FFprobe.Binary, cfg.FFmpeg.Binary),
			Description: "Required for media inspection and filtering",
		},
	}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg))
}
