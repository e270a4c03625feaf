package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"mediasieve/internal/cache"
	"mediasieve/internal/logging"
	"mediasieve/internal/media/ffprobe"
)

// DefaultCacheSize bounds the number of remembered per-file results.
const DefaultCacheSize = 10

// InfoProber fetches container and stream information.
type InfoProber interface {
	Info(ctx context.Context, path string, opts ffprobe.InfoOptions) (ffprobe.Result, error)
}

// Collector produces cached Results per input path.
type Collector struct {
	prober InfoProber
	solver FieldModeSolver
	cache  *cache.Cache[*Result]
	group  singleflight.Group
	logger *slog.Logger
}

// NewCollector wires a collector to its prober and field mode solver.
func NewCollector(prober InfoProber, solver FieldModeSolver, cacheSize int, logger *slog.Logger) *Collector {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	logger = logging.NewComponentLogger(logger, "metadata")
	return &Collector{
		prober: prober,
		solver: solver,
		cache:  cache.New[*Result]("metadata", cacheSize, logger),
		logger: logger,
	}
}

// CacheStats reports the result cache counters.
func (c *Collector) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// Get returns the metadata of input. Repeated calls for the same path return
// the same *Result while it stays cached. Concurrent callers share one
// collection that runs detached from whichever caller started it; the
// prober's timeout bounds it, and each caller stops waiting when its own
// context ends.
func (c *Collector) Get(ctx context.Context, input string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result, ok := c.cache.Get(input); ok {
		return result, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(input, func() (any, error) {
		if result, ok := c.cache.Peek(input); ok {
			return result, nil
		}
		info, err := c.prober.Info(shared, input, ffprobe.InfoOptions{Format: true, Streams: true})
		if err != nil {
			return nil, fmt.Errorf("collect metadata: %w", err)
		}
		result := NewResult(input, info, c.solver)
		c.logger.Debug("metadata collected",
			logging.String(logging.FieldInput, input),
			logging.Int("video_streams", result.Count(Video)),
			logging.Int("audio_streams", result.Count(Audio)))
		c.cache.Put(input, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}
