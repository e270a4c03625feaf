// Package ffprobe runs the ffprobe binary and decodes its JSON output.
//
// Key types:
//   - Prober: executes ffprobe with a per-run timeout and caches decoded
//     results by argument vector, so identical invocations run at most once
//   - Result: the decoded JSON document (format, streams, frames, programs)
//   - Runner: the subprocess seam; tests substitute a stub
//
// Primary entry points:
//   - Prober.Info: container and stream metadata for one file
//   - Prober.Frames: decoded frame records, optionally limited to a stream
//     selection and read interval
//
// Failures are distinguishable with errors.Is: ErrBinaryNotFound, ErrTimeout,
// ErrTerminated (killed by a signal), and ErrProcess (non-zero exit or
// undecodable output).
package ffprobe
