package ffprobe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
)

// Outcome captures a finished subprocess. Signal is non-zero when the process
// was killed by a signal, in which case ExitCode is the negated signal number.
type Outcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Signal   int
}

// Runner executes a fully formed argument vector (binary first) and waits for
// it. It returns an error only when the process could not be started or the
// context ended; exit statuses are reported through Outcome.
type Runner interface {
	Run(ctx context.Context, args []string) (Outcome, error)
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, args []string) (Outcome, error) {
	if len(args) == 0 {
		return Outcome{}, errors.New("empty command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome := Outcome{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, ctxErr
	}
	if err == nil {
		return outcome, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return outcome, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		outcome.Signal = int(status.Signal())
		outcome.ExitCode = -outcome.Signal
		return outcome, nil
	}
	outcome.ExitCode = exitErr.ExitCode()
	return outcome, nil
}
