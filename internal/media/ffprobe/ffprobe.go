package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"mediasieve/internal/cache"
	"mediasieve/internal/deps"
	"mediasieve/internal/logging"
)

// DefaultCacheSize is the number of decoded results kept in memory.
const DefaultCacheSize = 10

var defaultArgs = []string{"-hide_banner", "-of", "json"}

// Store is a persistent second tier consulted after the in-memory cache.
// Payloads are raw ffprobe JSON.
type Store interface {
	Lookup(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// Observer receives one call per completed ffprobe subprocess.
type Observer interface {
	ObserveProbe(outcome string, elapsed time.Duration)
}

// InfoOptions selects the -show_* sections requested by Info.
type InfoOptions struct {
	Format   bool
	Streams  bool
	Programs bool
}

// DefaultInfoOptions requests format, streams, and programs.
func DefaultInfoOptions() InfoOptions {
	return InfoOptions{Format: true, Streams: true, Programs: true}
}

// Option configures the prober.
type Option func(*Prober)

// WithRunner injects a custom subprocess runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(p *Prober) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithCacheSize overrides the in-memory cache capacity.
func WithCacheSize(size int) Option {
	return func(p *Prober) {
		p.cacheSize = size
	}
}

// WithStore attaches a persistent result store.
func WithStore(s Store) Option {
	return func(p *Prober) {
		p.store = s
	}
}

// WithObserver attaches a run observer such as a metrics recorder.
func WithObserver(o Observer) Option {
	return func(p *Prober) {
		p.observer = o
	}
}

// Prober executes ffprobe and caches decoded results.
type Prober struct {
	binary    string
	timeout   time.Duration
	runner    Runner
	store     Store
	observer  Observer
	logger    *slog.Logger
	cacheSize int
	cache     *cache.Cache[Result]
	group     singleflight.Group
}

// New resolves the ffprobe binary and constructs a prober. A non-positive
// timeout disables the wall-clock limit.
func New(binary string, timeout time.Duration, opts ...Option) (*Prober, error) {
	p := &Prober{
		timeout:   timeout,
		runner:    commandRunner{},
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "ffprobe")

	resolved, err := deps.ResolveExecutable(binary)
	if err != nil {
		p.logger.Error("ffprobe binary not found",
			logging.String("binary", binary),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ffprobe_binary_missing"),
			logging.String(logging.FieldErrorHint, "install ffprobe or set ffprobe.binary"))
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	p.binary = resolved
	p.cache = cache.New[Result]("ffprobe", p.cacheSize, p.logger)
	return p, nil
}

// Binary returns the resolved ffprobe path.
func (p *Prober) Binary() string {
	return p.binary
}

// CacheStats reports the in-memory cache counters.
func (p *Prober) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Info probes container and stream metadata for path.
func (p *Prober) Info(ctx context.Context, path string, opts InfoOptions) (Result, error) {
	args := p.baseArgs()
	if opts.Format {
		args = append(args, "-show_format")
	}
	if opts.Streams {
		args = append(args, "-show_streams")
	}
	if opts.Programs {
		args = append(args, "-show_programs")
	}
	args = append(args, "--", path)
	return p.Exec(ctx, args)
}

// Frames decodes frame records from path. Empty selectStreams or readIntervals
// leave the respective option off.
func (p *Prober) Frames(ctx context.Context, path, selectStreams, readIntervals string) (Result, error) {
	args := append(p.baseArgs(), "-show_frames")
	if selectStreams != "" {
		args = append(args, "-select_streams", selectStreams)
	}
	if readIntervals != "" {
		args = append(args, "-read_intervals", readIntervals)
	}
	args = append(args, "--", path)
	return p.Exec(ctx, args)
}

func (p *Prober) baseArgs() []string {
	args := make([]string, 0, 12)
	args = append(args, p.binary)
	return append(args, defaultArgs...)
}

// Exec runs a fully formed argument vector (binary first). Identical vectors
// are served from the cache; concurrent identical calls share one subprocess.
// The shared subprocess is detached from the caller that started it and is
// bounded by the prober timeout instead, so a cancelled caller only abandons
// its own wait. With no timeout configured the first caller's context governs
// the subprocess.
func (p *Prober) Exec(ctx context.Context, args []string) (Result, error) {
	if len(args) == 0 {
		return nil, errors.New("ffprobe: empty argument list")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cacheID := strings.Join(args, "\x00")
	if result, ok := p.cache.Get(cacheID); ok {
		return result, nil
	}

	shared := ctx
	if p.timeout > 0 {
		shared = context.WithoutCancel(ctx)
	}
	ch := p.group.DoChan(cacheID, func() (any, error) {
		if result, ok := p.cache.Peek(cacheID); ok {
			return result, nil
		}
		result, err := p.load(shared, cacheID, args)
		if err != nil {
			return nil, err
		}
		p.cache.Put(cacheID, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (p *Prober) load(ctx context.Context, cacheID string, args []string) (Result, error) {
	storeKey := ""
	if p.store != nil {
		storeKey = fingerprint(cacheID, args[len(args)-1])
		if payload, ok, err := p.store.Lookup(ctx, storeKey); err != nil {
			logging.WarnWithContext(p.logger, "probe store lookup failed", "probe_store_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "ffprobe will run instead"))
		} else if ok {
			if result, err := Decode(payload); err == nil {
				p.logger.Debug("probe result served from store")
				return result, nil
			}
		}
	}

	stdout, err := p.run(ctx, args)
	if err != nil {
		return nil, err
	}
	result, err := Decode(stdout)
	if err != nil {
		p.logger.Error("ffprobe stdout decoding error",
			logging.Error(err),
			logging.String(logging.FieldEventType, "ffprobe_decode_failed"))
		p.logger.Debug("dumping ffprobe stdout", logging.String("stdout", string(stdout)))
		return nil, &ProcessError{ExitCode: 0, Output: stdout, Err: err}
	}

	if p.store != nil {
		if err := p.store.Save(ctx, storeKey, stdout); err != nil {
			logging.WarnWithContext(p.logger, "probe store save failed", "probe_store_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "result is cached in memory only"))
		}
	}
	return result, nil
}

func (p *Prober) run(ctx context.Context, args []string) ([]byte, error) {
	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Debug("starting ffprobe", logging.String(logging.FieldCommand, strings.Join(args, " ")))
	started := time.Now()
	outcome, err := p.runner.Run(runCtx, args)
	elapsed := time.Since(started)

	switch {
	case err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		p.observe("timeout", elapsed)
		p.logger.Error("ffprobe timeout - terminated",
			logging.Duration("timeout", p.timeout),
			logging.String(logging.FieldEventType, "ffprobe_timeout"))
		return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	case err != nil:
		p.observe("error", elapsed)
		return nil, fmt.Errorf("run ffprobe: %w", err)
	case outcome.Signal != 0 || outcome.ExitCode < 0:
		p.observe("terminated", elapsed)
		signal := outcome.Signal
		if signal == 0 {
			signal = -outcome.ExitCode
		}
		return nil, &TerminatedError{Signal: signal}
	case outcome.ExitCode != 0:
		p.observe("failed", elapsed)
		p.logger.Error("ffprobe exited with error",
			logging.Int("exit_code", outcome.ExitCode),
			logging.String(logging.FieldEventType, "ffprobe_failed"))
		p.logger.Debug("dumping ffprobe stderr", logging.String("stderr", string(outcome.Stderr)))
		return nil, &ProcessError{ExitCode: outcome.ExitCode, Stderr: strings.TrimSpace(string(outcome.Stderr))}
	}
	p.observe("ok", elapsed)
	p.logger.Debug("ffprobe done", logging.Duration("elapsed", elapsed))
	return outcome.Stdout, nil
}

func (p *Prober) observe(outcome string, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.ObserveProbe(outcome, elapsed)
	}
}

// fingerprint extends the argument identity with the input file's size and
// modification time so the persistent tier misses after the file changes.
func fingerprint(cacheID, input string) string {
	info, err := os.Stat(input)
	if err != nil {
		return cacheID
	}
	return cacheID + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}
