package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBinaries()
	c.normalizeLogging()
	c.FieldMode.ReadIntervals = strings.TrimSpace(c.FieldMode.ReadIntervals)
	if c.FieldMode.ReadIntervals == "" {
		c.FieldMode.ReadIntervals = defaultReadIntervals
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(strings.TrimSpace(c.Paths.ScratchDir)); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.ProbeStore.Path) == "" {
		c.ProbeStore.Path = defaultProbeStorePath
	}
	if c.ProbeStore.Path, err = expandPath(strings.TrimSpace(c.ProbeStore.Path)); err != nil {
		return fmt.Errorf("probe_store.path: %w", err)
	}
	if c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath); c.Metrics.TextfilePath != "" {
		if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeBinaries() {
	if value, ok := os.LookupEnv("MEDIASIEVE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.Binary = value
	}
	if value, ok := os.LookupEnv("MEDIASIEVE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.FFprobe.Binary = value
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFprobe.Binary = strings.TrimSpace(c.FFprobe.Binary)
	if c.FFprobe.Binary == "" {
		c.FFprobe.Binary = defaultFFprobeBinary
	}
	args := c.FFmpeg.GeneralArgs[:0]
	for _, arg := range c.FFmpeg.GeneralArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.FFmpeg.GeneralArgs = args
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
