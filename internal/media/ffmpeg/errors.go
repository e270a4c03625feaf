package ffmpeg

import (
	"errors"
	"fmt"
	"strings"

	"mediasieve/internal/deps"
)

var (
	// ErrBinaryNotFound reports a missing or non-executable ffmpeg binary.
	ErrBinaryNotFound = deps.ErrBinaryNotFound
	// ErrInputNotFound reports a declared input that is not a regular file.
	ErrInputNotFound = errors.New("input file not found")
	// ErrOutputExists reports a declared output whose final path is taken.
	ErrOutputExists = errors.New("output file already exists")
	// ErrOutputDirNotFound reports a declared output whose parent directory is missing.
	ErrOutputDirNotFound = errors.New("output directory not found")
	// ErrProcess reports a non-zero exit or a failure while reading ffmpeg output.
	ErrProcess = errors.New("ffmpeg process failed")
)

// ProcessError describes a failed transcode.
type ProcessError struct {
	ExitCode int
	Tail     []string
	DrainErr error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffmpeg exit code %d", e.ExitCode)
	if len(e.Tail) > 0 {
		b.WriteString("; last output: ")
		b.WriteString(strings.Join(e.Tail, " | "))
	}
	if e.DrainErr != nil {
		fmt.Fprintf(&b, "; stream error: %v", e.DrainErr)
	}
	return b.String()
}

func (e *ProcessError) Unwrap() []error {
	if e.DrainErr == nil {
		return []error{ErrProcess}
	}
	return []error{ErrProcess, e.DrainErr}
}
