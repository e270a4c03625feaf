// Package config loads, normalizes, and validates mediasieve configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// ffmpeg and ffprobe binaries. Always obtain settings through this package so
// downstream code receives absolute paths and clear validation errors.
package config
