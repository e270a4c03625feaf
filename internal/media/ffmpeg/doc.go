// Package ffmpeg supervises ffmpeg transcodes.
//
// A transcode writes every output to a uniquely named file in the staging
// area and only relocates it to its final path after ffmpeg exits cleanly.
// Inputs must exist and outputs must not before anything is spawned; on
// failure all staged files are removed and the error carries the exit code
// plus the last lines ffmpeg printed.
//
// Progress is read from ffmpeg's -stats output on stderr. Those lines are
// separated by carriage returns, so the stream is split on either \r or \n.
package ffmpeg
