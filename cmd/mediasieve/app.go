package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mediasieve/internal/config"
	"mediasieve/internal/deps"
	"mediasieve/internal/dispatch"
	"mediasieve/internal/logging"
	"mediasieve/internal/media/ffmpeg"
	"mediasieve/internal/media/ffprobe"
	"mediasieve/internal/media/fieldmode"
	"mediasieve/internal/media/filter"
	"mediasieve/internal/media/metadata"
	"mediasieve/internal/metrics"
	"mediasieve/internal/probestore"
	"mediasieve/internal/staging"
)

// app holds the services one command invocation works with.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *probestore.Store

	prober    *ffprobe.Prober
	solver    *fieldmode.Solver
	collector *metadata.Collector
	filter    *filter.Filter
	area      *staging.Area

	// ffmpeg is resolved lazily so probe-only commands work without it.
	supervisor *ffmpeg.Supervisor
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.registry)

	opts := []ffprobe.Option{
		ffprobe.WithLogger(logger),
		ffprobe.WithCacheSize(cfg.FFprobe.CacheSize),
		ffprobe.WithObserver(a.metrics),
	}
	if cfg.ProbeStore.Enabled {
		store, err := probestore.Open(cfg.ProbeStore.Path, cfg.ProbeStore.MaxEntries)
		if err != nil {
			logging.WarnWithContext(logger, "probe store unavailable; continuing without it", "probe_store_open_failed",
				logging.String("path", cfg.ProbeStore.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "ffprobe results are not persisted across runs"),
				logging.String(logging.FieldErrorHint, "check probe_store.path permissions or run `mediasieve cache clear`"),
			)
		} else {
			a.store = store
			opts = append(opts, ffprobe.WithStore(store))
		}
	}

	binary := deps.ResolveFFprobe(cfg.FFprobe.Binary, cfg.FFmpeg.Binary)
	prober, err := ffprobe.New(binary, cfg.ProbeTimeout(), opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init ffprobe: %w", err)
	}
	a.prober = prober
	a.solver = fieldmode.NewSolver(prober, cfg.FieldMode.ReadIntervals, cfg.FieldMode.CacheSize, logger)
	a.collector = metadata.NewCollector(prober, a.solver, cfg.Metadata.CacheSize, logger)
	a.filter = filter.New(a.collector, logger)

	a.registry.MustRegister(metrics.NewCacheCollector(
		metrics.CacheSource{Name: "ffprobe", Stats: prober.CacheStats},
		metrics.CacheSource{Name: "field_mode", Stats: a.solver.CacheStats},
		metrics.CacheSource{Name: "metadata", Stats: a.collector.CacheStats},
	))

	area, err := staging.NewArea(cfg.Paths.ScratchDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init scratch area: %w", err)
	}
	a.area = area
	return a, nil
}

// Supervisor returns the ffmpeg supervisor, resolving the binary on first use.
func (a *app) Supervisor() (*ffmpeg.Supervisor, error) {
	if a.supervisor != nil {
		return a.supervisor, nil
	}
	supervisor, err := ffmpeg.New(a.cfg.FFmpeg.Binary, a.area,
		ffmpeg.WithLogger(a.logger),
		ffmpeg.WithObserver(a.metrics),
		ffmpeg.WithGeneralArgs(a.cfg.FFmpeg.GeneralArgs),
		ffmpeg.WithProgressLogEvery(a.cfg.FFmpeg.ProgressLogEveryFrames),
	)
	if err != nil {
		return nil, fmt.Errorf("init ffmpeg: %w", err)
	}
	a.supervisor = supervisor
	return supervisor, nil
}

// Dispatcher wires the filter to the ffmpeg supervisor.
func (a *app) Dispatcher() (*dispatch.Dispatcher, error) {
	supervisor, err := a.Supervisor()
	if err != nil {
		return nil, err
	}
	return dispatch.New(a.filter, supervisor, a.logger), nil
}

// Close exports metrics and releases the probe store.
func (a *app) Close() error {
	var errs []error
	if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath, a.registry); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close probe store: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
