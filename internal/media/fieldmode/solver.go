package fieldmode

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"mediasieve/internal/cache"
	"mediasieve/internal/logging"
	"mediasieve/internal/media/ffprobe"
)

const (
	// DefaultReadIntervals decodes ten frames from the start of the stream.
	DefaultReadIntervals = "%+#10"
	// DefaultCacheSize bounds the number of remembered (input, stream) decisions.
	DefaultCacheSize = 10
)

// FrameProber decodes frame records for a stream selection.
type FrameProber interface {
	Frames(ctx context.Context, path, selectStreams, readIntervals string) (ffprobe.Result, error)
}

// Solver classifies the field order of video streams by sampling frames.
type Solver struct {
	prober        FrameProber
	readIntervals string
	cache         *cache.Cache[Mode]
	logger        *slog.Logger
}

// NewSolver constructs a solver. An empty readIntervals uses
// DefaultReadIntervals; a non-positive cacheSize uses DefaultCacheSize.
func NewSolver(prober FrameProber, readIntervals string, cacheSize int, logger *slog.Logger) *Solver {
	if readIntervals == "" {
		readIntervals = DefaultReadIntervals
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	logger = logging.NewComponentLogger(logger, "fieldmode")
	return &Solver{
		prober:        prober,
		readIntervals: readIntervals,
		cache:         cache.New[Mode]("fieldmode", cacheSize, logger),
		logger:        logger,
	}
}

// CacheStats reports the decision cache counters.
func (s *Solver) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Solve returns the field mode of the n-th video stream of input.
func (s *Solver) Solve(ctx context.Context, input string, stream int) (Mode, error) {
	if stream < 0 {
		return MixedOrUnknown, fmt.Errorf("video stream %d: negative index", stream)
	}
	cacheID := input + "\x00" + strconv.Itoa(stream)
	if mode, ok := s.cache.Get(cacheID); ok {
		return mode, nil
	}

	s.logger.Info("decoding frames to determine field mode",
		logging.String(logging.FieldInput, input),
		logging.Int("stream", stream))
	result, err := s.prober.Frames(ctx, input, fmt.Sprintf("v:%d", stream), s.readIntervals)
	if err != nil {
		return MixedOrUnknown, fmt.Errorf("sample frames of video stream %d: %w", stream, err)
	}

	counts := Collect(result.Frames())
	s.logger.Debug("frame sample tallied",
		logging.Int("total", counts.Total),
		logging.Int("tff", counts.TFF),
		logging.Int("bff", counts.BFF),
		logging.Int("progressive", counts.Progressive))
	mode := counts.Decide()
	s.logger.Info("field mode determined",
		logging.String(logging.FieldInput, input),
		logging.Int("stream", stream),
		logging.String("field_mode", mode.String()))

	s.cache.Put(cacheID, mode)
	return mode, nil
}
