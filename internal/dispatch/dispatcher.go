package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"mediasieve/internal/logging"
	"mediasieve/internal/media/ffmpeg"
	"mediasieve/internal/media/filter"
)

// Matcher decides whether an input passes a filter.
type Matcher interface {
	Match(ctx context.Context, input string, params filter.Params) (bool, error)
}

// Transcoder runs a validated transcode request.
type Transcoder interface {
	Transcode(ctx context.Context, req ffmpeg.Request) (ffmpeg.Result, error)
}

// Outcome reports what happened to one job.
type Outcome struct {
	Job      string        `json:"job"`
	Accepted bool          `json:"accepted"`
	Rejected string        `json:"rejected_input,omitempty"`
	Result   ffmpeg.Result `json:"result"`
}

// Dispatcher gates transcodes on metadata filters.
type Dispatcher struct {
	matcher    Matcher
	transcoder Transcoder
	logger     *slog.Logger
}

// New wires a dispatcher.
func New(matcher Matcher, transcoder Transcoder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		matcher:    matcher,
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Run evaluates the job filter against every input and transcodes only when
// all of them pass. simulate forces a dry run regardless of the job setting.
func (d *Dispatcher) Run(ctx context.Context, job Job, simulate bool, progress func(int)) (Outcome, error) {
	outcome := Outcome{Job: job.Label()}
	if err := job.Validate(); err != nil {
		return outcome, err
	}
	params, err := filter.ParseParams(job.Filter)
	if err != nil {
		return outcome, fmt.Errorf("job %s: %w", outcome.Job, err)
	}

	if !params.Empty() {
		for _, in := range job.Inputs {
			ok, err := d.matcher.Match(ctx, in.Path, params)
			if err != nil {
				return outcome, fmt.Errorf("job %s: filter %s: %w", outcome.Job, in.Path, err)
			}
			if !ok {
				d.logger.Info("job skipped by filter",
					logging.String("job", outcome.Job),
					logging.String(logging.FieldInput, in.Path),
					logging.String(logging.FieldEventType, "dispatch_filtered"))
				outcome.Rejected = in.Path
				return outcome, nil
			}
		}
	}

	outcome.Accepted = true
	result, err := d.transcoder.Transcode(ctx, ffmpeg.Request{
		GeneralArgs: job.GeneralArgs,
		Inputs:      job.Inputs,
		Outputs:     job.Outputs,
		Simulate:    simulate || job.Simulate,
		Progress:    progress,
	})
	outcome.Result = result
	if err != nil {
		return outcome, fmt.Errorf("job %s: %w", outcome.Job, err)
	}
	d.logger.Info("job completed",
		logging.String("job", outcome.Job),
		logging.Bool("simulated", result.Simulated),
		logging.Duration("elapsed", result.Elapsed))
	return outcome, nil
}

// RunAll runs jobs in order and stops at the first error.
func (d *Dispatcher) RunAll(ctx context.Context, jobs []Job, simulate bool, progress func(job string, frame int)) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		var onFrame func(int)
		if progress != nil {
			label := job.Label()
			onFrame = func(frame int) { progress(label, frame) }
		}
		outcome, err := d.Run(ctx, job, simulate, onFrame)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}
