package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// Process is a started ffmpeg invocation.
type Process interface {
	// Stderr streams the diagnostic and progress output.
	Stderr() io.Reader
	// Wait blocks until exit. A process killed by a signal reports the
	// negated signal number.
	Wait() (int, error)
	// Terminate asks the process to stop.
	Terminate() error
}

// Runner starts ffmpeg with a fully formed argument vector (binary first).
type Runner interface {
	Start(ctx context.Context, args []string) (Process, error)
}

type commandRunner struct{}

func (commandRunner) Start(ctx context.Context, args []string) (Process, error) {
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}
	return &commandProcess{cmd: cmd, stderr: stderr}, nil
}

type commandProcess struct {
	cmd    *exec.Cmd
	stderr io.Reader
}

func (p *commandProcess) Stderr() io.Reader {
	return p.stderr
}

func (p *commandProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return -int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

func (p *commandProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, errors.ErrUnsupported) {
		return p.cmd.Process.Kill()
	}
	return err
}
