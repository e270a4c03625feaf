package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediasieve/internal/deps"
	"mediasieve/internal/fileutil"
	"mediasieve/internal/logging"
	"mediasieve/internal/staging"
)

// baselineArgs precede every invocation: no banner, never overwrite, no
// stdin, warnings only, and -stats progress lines.
var baselineArgs = []string{"-hide_banner", "-n", "-nostdin", "-loglevel", "warning", "-stats"}

// BaselineArgs returns a copy of the flags every invocation starts with.
func BaselineArgs() []string {
	return append([]string(nil), baselineArgs...)
}

// Input is one ffmpeg input: flags that precede -i, then the source path.
type Input struct {
	Args []string `yaml:"args" json:"args,omitempty"`
	Path string   `yaml:"path" json:"path"`
}

// Output is one ffmpeg output: flags followed by the final destination.
type Output struct {
	Args []string `yaml:"args" json:"args,omitempty"`
	Path string   `yaml:"path" json:"path"`
}

// Request describes one transcode.
type Request struct {
	GeneralArgs []string
	Inputs      []Input
	Outputs     []Output
	// Simulate builds and validates the command without running it.
	Simulate bool
	// Progress receives each parsed frame counter.
	Progress func(frame int)
}

// StagedOutput pairs a temporary file with the path it is committed to.
type StagedOutput struct {
	TempPath  string `json:"temp_path"`
	FinalPath string `json:"final_path"`
	// Renamed is set when FinalPath was occupied at commit time and a
	// suffixed name was used instead.
	Renamed bool `json:"renamed,omitempty"`
}

// Result describes a completed transcode.
type Result struct {
	Args      []string       `json:"args"`
	Outputs   []StagedOutput `json:"outputs"`
	Elapsed   time.Duration  `json:"elapsed"`
	LastFrame int            `json:"last_frame"`
	Simulated bool           `json:"simulated,omitempty"`
}

// Observer receives one call per finished transcode.
type Observer interface {
	ObserveTranscode(result string, elapsed time.Duration, frames int)
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithLogger sets the logger used for transcode diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithObserver attaches a run observer such as a metrics recorder.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) {
		s.observer = o
	}
}

// WithGeneralArgs sets flags placed after the baseline on every invocation,
// before the per-request general flags.
func WithGeneralArgs(args []string) Option {
	return func(s *Supervisor) {
		s.generalArgs = append([]string(nil), args...)
	}
}

// WithProgressLogEvery sets the frame interval between progress log lines.
func WithProgressLogEvery(frames int) Option {
	return func(s *Supervisor) {
		s.progressEvery = frames
	}
}

// Supervisor runs ffmpeg transcodes through a staging area.
type Supervisor struct {
	binary        string
	area          *staging.Area
	runner        Runner
	observer      Observer
	logger        *slog.Logger
	generalArgs   []string
	progressEvery int
}

// New resolves the ffmpeg binary and binds the supervisor to area.
func New(binary string, area *staging.Area, opts ...Option) (*Supervisor, error) {
	if area == nil {
		return nil, errors.New("ffmpeg: staging area required")
	}
	s := &Supervisor{
		area:   area,
		runner: commandRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "ffmpeg")

	resolved, err := deps.ResolveExecutable(binary)
	if err != nil {
		s.logger.Error("ffmpeg binary not found",
			logging.String("binary", binary),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ffmpeg_binary_missing"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary"))
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	s.binary = resolved
	return s, nil
}

// Binary returns the resolved ffmpeg path.
func (s *Supervisor) Binary() string {
	return s.binary
}

// Transcode validates req, runs ffmpeg, and commits staged outputs on a clean
// exit. No process is started when any input is missing or any output exists.
func (s *Supervisor) Transcode(ctx context.Context, req Request) (Result, error) {
	args, staged, err := s.build(req)
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("ffmpeg command built", logging.String(logging.FieldCommand, strings.Join(args, " ")))

	if req.Simulate {
		s.logger.Info("simulating ffmpeg run", logging.Int("outputs", len(staged)))
		committed, err := s.commit(staged, true)
		s.observe("simulated", 0, 0)
		return Result{Args: args, Outputs: committed, Simulated: true}, err
	}

	lease, err := s.area.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			s.logger.Debug("staging lease release failed", logging.Error(err))
		}
	}()

	return s.run(ctx, args, staged, req.Progress)
}

func (s *Supervisor) build(req Request) ([]string, []StagedOutput, error) {
	if len(req.Outputs) == 0 {
		return nil, nil, errors.New("ffmpeg: at least one output required")
	}
	args := make([]string, 0, 1+len(baselineArgs)+len(s.generalArgs)+len(req.GeneralArgs))
	args = append(args, s.binary)
	args = append(args, baselineArgs...)
	args = append(args, s.generalArgs...)
	args = append(args, req.GeneralArgs...)

	for _, in := range req.Inputs {
		info, err := os.Stat(in.Path)
		if err != nil || !info.Mode().IsRegular() {
			s.logger.Error("input file not found",
				logging.String(logging.FieldInput, in.Path),
				logging.String(logging.FieldEventType, "ffmpeg_input_missing"))
			return nil, nil, fmt.Errorf("%w: %q", ErrInputNotFound, in.Path)
		}
		args = append(args, in.Args...)
		args = append(args, "-i", in.Path)
	}

	staged := make([]StagedOutput, 0, len(req.Outputs))
	for _, out := range req.Outputs {
		if fileutil.Exists(out.Path) {
			s.logger.Error("output file already exists",
				logging.String("output", out.Path),
				logging.String(logging.FieldEventType, "ffmpeg_output_exists"))
			return nil, nil, fmt.Errorf("%w: %q", ErrOutputExists, out.Path)
		}
		if info, err := os.Stat(filepath.Dir(out.Path)); err != nil || !info.IsDir() {
			s.logger.Error("output directory not found",
				logging.String("output", out.Path),
				logging.String(logging.FieldEventType, "ffmpeg_output_dir_missing"))
			return nil, nil, fmt.Errorf("%w: %q", ErrOutputDirNotFound, filepath.Dir(out.Path))
		}
		tmp := filepath.Join(s.area.Dir(), uuid.NewString()+filepath.Ext(out.Path))
		staged = append(staged, StagedOutput{TempPath: tmp, FinalPath: out.Path})
		args = append(args, out.Args...)
		args = append(args, tmp)
	}
	return args, staged, nil
}

func (s *Supervisor) run(ctx context.Context, args []string, staged []StagedOutput, progress func(int)) (Result, error) {
	started := time.Now()
	s.logger.Info("ffmpeg process starting", logging.Int("outputs", len(staged)))

	proc, err := s.runner.Start(ctx, args)
	if err != nil {
		s.removeStaged(staged)
		s.observe("failed", time.Since(started), 0)
		return Result{}, fmt.Errorf("%w: %w", ErrProcess, err)
	}

	sampler := logging.NewProgressSampler(s.progressEvery)
	recent := &tail{}
	lastFrame := 0
	parsing := true

	scanner := newOutputScanner(proc.Stderr())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		recent.add(line)
		if !parsing {
			continue
		}
		frame, isProgress, err := parseFrame(line)
		if !isProgress {
			continue
		}
		if err != nil {
			logging.WarnWithContext(s.logger, "unable to determine transcode progress; ignoring it", "ffmpeg_progress_unparsed",
				logging.String("line", line),
				logging.Error(err),
				logging.String(logging.FieldImpact, "progress is no longer reported for this run"))
			parsing = false
			continue
		}
		lastFrame = frame
		if sampler.ShouldLog(frame) {
			s.logger.Debug("transcode progress", logging.Int("frame", frame))
		}
		if progress != nil {
			progress(frame)
		}
	}

	drainErr := scanner.Err()
	if drainErr == nil {
		drainErr = ctx.Err()
	}
	if drainErr != nil {
		s.logger.Error("reading ffmpeg output failed",
			logging.Error(drainErr),
			logging.String(logging.FieldEventType, "ffmpeg_drain_failed"))
		if termErr := proc.Terminate(); termErr != nil {
			s.logger.Debug("terminate ffmpeg failed", logging.Error(termErr))
		}
	}

	exitCode, waitErr := proc.Wait()
	elapsed := time.Since(started)
	s.logger.Info("ffmpeg process finished",
		logging.Int("exit_code", exitCode),
		logging.Duration("elapsed", elapsed))

	if drainErr == nil {
		drainErr = waitErr
	}
	if exitCode != 0 || drainErr != nil {
		s.removeStaged(staged)
		s.observe("failed", elapsed, lastFrame)
		procErr := &ProcessError{ExitCode: exitCode, Tail: recent.snapshot(), DrainErr: drainErr}
		s.logger.Error("ffmpeg transcode failed",
			logging.Int("exit_code", exitCode),
			logging.Strings("tail", procErr.Tail),
			logging.String(logging.FieldEventType, "ffmpeg_failed"),
			logging.String(logging.FieldErrorHint, "inspect the last output lines for the ffmpeg error"))
		return Result{}, procErr
	}

	committed, err := s.commit(staged, false)
	if err != nil {
		s.observe("failed", elapsed, lastFrame)
		return Result{Args: args, Outputs: committed, Elapsed: elapsed, LastFrame: lastFrame}, err
	}
	s.observe("ok", elapsed, lastFrame)
	return Result{Args: args, Outputs: committed, Elapsed: elapsed, LastFrame: lastFrame}, nil
}

// commit relocates staged outputs. A final path claimed since validation is
// kept and the output lands beside it with a suffix taken from the staged
// file name. In simulate mode nothing is moved.
func (s *Supervisor) commit(staged []StagedOutput, simulate bool) ([]StagedOutput, error) {
	committed := make([]StagedOutput, 0, len(staged))
	for i, out := range staged {
		if fileutil.Exists(out.FinalPath) {
			suffix := strings.TrimSuffix(filepath.Base(out.TempPath), filepath.Ext(out.TempPath))
			if len(suffix) > 8 {
				suffix = suffix[:8]
			}
			renamed := fileutil.SuffixedPath(out.FinalPath, suffix)
			logging.WarnWithContext(s.logger, "output path was claimed during transcode", "ffmpeg_output_collision",
				logging.String("output", out.FinalPath),
				logging.String("renamed_to", renamed),
				logging.String(logging.FieldImpact, "output written under a suffixed name"))
			out.FinalPath = renamed
			out.Renamed = true
		}
		if !simulate {
			if err := fileutil.Move(out.TempPath, out.FinalPath); err != nil {
				s.removeStaged(staged[i:])
				s.rollback(committed)
				return nil, fmt.Errorf("commit %s: %w", out.FinalPath, err)
			}
			s.logger.Info("output committed", logging.String("output", out.FinalPath))
		}
		committed = append(committed, out)
	}
	return committed, nil
}

// rollback removes outputs already moved to their final paths so a failed
// commit leaves nothing behind.
func (s *Supervisor) rollback(committed []StagedOutput) {
	for _, out := range committed {
		if err := fileutil.RemoveIfExists(out.FinalPath); err != nil {
			logging.ErrorWithContext(s.logger, "failed to roll back committed output", "ffmpeg_rollback_failed",
				logging.String("output", out.FinalPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "partial transcode output left at its final path"),
				logging.String(logging.FieldErrorHint, "remove the file manually before retrying"))
			continue
		}
		s.logger.Info("committed output rolled back", logging.String("output", out.FinalPath))
	}
}

func (s *Supervisor) removeStaged(staged []StagedOutput) {
	for _, out := range staged {
		if err := fileutil.RemoveIfExists(out.TempPath); err != nil {
			logging.WarnWithContext(s.logger, "failed to remove staged output", "ffmpeg_cleanup_failed",
				logging.String("path", out.TempPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale file left in scratch directory until the next sweep"))
		}
	}
}

func (s *Supervisor) observe(result string, elapsed time.Duration, frames int) {
	if s.observer != nil {
		s.observer.ObserveTranscode(result, elapsed, frames)
	}
}
