package ffprobe

import (
	"errors"
	"fmt"

	"mediasieve/internal/deps"
)

var (
	// ErrBinaryNotFound reports a missing or non-executable ffprobe binary.
	ErrBinaryNotFound = deps.ErrBinaryNotFound
	// ErrTimeout reports that ffprobe exceeded its wall-clock limit and was killed.
	ErrTimeout = errors.New("ffprobe timed out")
	// ErrTerminated reports that ffprobe was killed by a signal.
	ErrTerminated = errors.New("ffprobe terminated")
	// ErrProcess reports a non-zero exit or output that is not valid JSON.
	ErrProcess = errors.New("ffprobe process failed")
)

// ProcessError describes a failed ffprobe run. Output holds the raw stdout when
// decoding failed so callers can log it; it is never returned as a result.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Output   []byte
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ffprobe process failed (exit %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("ffprobe process failed (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProcess}
	}
	return []error{ErrProcess, e.Err}
}

// TerminatedError reports the signal that killed ffprobe.
type TerminatedError struct {
	Signal int
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("ffprobe terminated with signal %d", e.Signal)
}

func (e *TerminatedError) Unwrap() error {
	return ErrTerminated
}
