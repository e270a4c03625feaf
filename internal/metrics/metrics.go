package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mediasieve"

// Metrics holds counters for probe and transcode subprocess runs.
type Metrics struct {
	ProbeRuns         *prometheus.CounterVec
	ProbeDuration     prometheus.Histogram
	TranscodeRuns     *prometheus.CounterVec
	TranscodeDuration prometheus.Histogram
	TranscodeFrames   prometheus.Counter
}

// New creates and registers the metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_runs_total",
			Help:      "ffprobe invocations by outcome.",
		}, []string{"result"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall-clock duration of ffprobe invocations.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TranscodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_runs_total",
			Help:      "ffmpeg transcodes by outcome.",
		}, []string{"result"}),
		TranscodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Wall-clock duration of ffmpeg transcodes.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		TranscodeFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_frames_total",
			Help:      "Frames reported by ffmpeg progress output.",
		}),
	}

	reg.MustRegister(
		m.ProbeRuns,
		m.ProbeDuration,
		m.TranscodeRuns,
		m.TranscodeDuration,
		m.TranscodeFrames,
	)
	return m
}

// ObserveProbe records one ffprobe run.
func (m *Metrics) ObserveProbe(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProbeRuns.WithLabelValues(result).Inc()
	m.ProbeDuration.Observe(elapsed.Seconds())
}

// ObserveTranscode records one ffmpeg run and the last frame it reported.
func (m *Metrics) ObserveTranscode(result string, elapsed time.Duration, frames int) {
	if m == nil {
		return
	}
	m.TranscodeRuns.WithLabelValues(result).Inc()
	if result != "simulated" {
		m.TranscodeDuration.Observe(elapsed.Seconds())
	}
	if frames > 0 {
		m.TranscodeFrames.Add(float64(frames))
	}
}
