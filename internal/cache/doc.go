// Package cache provides the bounded result cache shared by the probe,
// field-mode, and metadata layers.
//
// Entries are keyed by the SHA-1 digest of a caller supplied identifier, so
// equal identifiers always land in the same slot. When the cache grows past
// its capacity the oldest inserted entry is evicted; reads never refresh an
// entry's position. A miss is reported as (zero, false) and is an ordinary
// outcome, not an error.
package cache
