// Package probestore persists raw ffprobe output in SQLite so results survive
// process restarts. Keys are opaque strings supplied by the prober; they are
// hashed before storage. The store is bounded by a maximum entry count and
// prunes the oldest rows first.
package probestore
