// Package metadata collects ffprobe container and stream information for a
// media file and exposes it through memoized accessors.
//
// Streams are addressed by kind (video or audio) and by their ordinal among
// streams of that kind, which is the same numbering ffprobe uses for v:N and
// a:N stream specifiers.
package metadata
