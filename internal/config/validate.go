package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := ensurePositiveMap(map[string]int{
		"ffprobe.timeout_seconds":          c.FFprobe.TimeoutSeconds,
		"ffprobe.cache_size":               c.FFprobe.CacheSize,
		"field_mode.cache_size":            c.FieldMode.CacheSize,
		"metadata.cache_size":              c.Metadata.CacheSize,
		"ffmpeg.progress_log_every_frames": c.FFmpeg.ProgressLogEveryFrames,
		"staging.stale_after_hours":        c.Staging.StaleAfterHours,
	}); err != nil {
		return err
	}
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.ProbeStore.Enabled && c.ProbeStore.MaxEntries <= 0 {
		return errors.New("probe_store.max_entries must be positive when probe_store.enabled is true")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
