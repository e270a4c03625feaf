package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediasieve/internal/logging"
	"mediasieve/internal/media/ffmpeg"
	"mediasieve/internal/media/filter"
)

type fakeMatcher struct {
	reject map[string]bool
	err    error
	seen   []string
}

func (m *fakeMatcher) Match(_ context.Context, input string, params filter.Params) (bool, error) {
	m.seen = append(m.seen, input)
	if m.err != nil {
		return false, m.err
	}
	return !m.reject[input], nil
}

type fakeTranscoder struct {
	calls []ffmpeg.Request
	err   error
}

func (t *fakeTranscoder) Transcode(_ context.Context, req ffmpeg.Request) (ffmpeg.Result, error) {
	t.calls = append(t.calls, req)
	if req.Progress != nil {
		req.Progress(42)
	}
	return ffmpeg.Result{LastFrame: 42, Simulated: req.Simulate}, t.err
}

func sampleJob() Job {
	return Job{
		Name:    "sample",
		Filter:  map[string]any{"count:v": 1},
		Inputs:  []ffmpeg.Input{{Path: "/in/a.ts"}, {Path: "/in/b.ts"}},
		Outputs: []ffmpeg.Output{{Path: "/out/a.mkv", Args: []string{"-c", "copy"}}},
	}
}

func TestRunTranscodesWhenAllInputsPass(t *testing.T) {
	matcher := &fakeMatcher{}
	transcoder := &fakeTranscoder{}
	d := New(matcher, transcoder, logging.NewNop())

	var frames []int
	outcome, err := d.Run(context.Background(), sampleJob(), false, func(f int) { frames = append(frames, f) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Accepted || outcome.Rejected != "" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(matcher.seen) != 2 {
		t.Fatalf("expected both inputs matched, got %v", matcher.seen)
	}
	if len(transcoder.calls) != 1 {
		t.Fatalf("expected one transcode, got %d", len(transcoder.calls))
	}
	if len(frames) != 1 || frames[0] != 42 {
		t.Fatalf("progress not forwarded: %v", frames)
	}
	if outcome.Result.LastFrame != 42 {
		t.Fatalf("result not returned: %+v", outcome.Result)
	}
}

func TestRunStopsAtFirstRejectedInput(t *testing.T) {
	matcher := &fakeMatcher{reject: map[string]bool{"/in/a.ts": true}}
	transcoder := &fakeTranscoder{}
	d := New(matcher, transcoder, logging.NewNop())

	outcome, err := d.Run(context.Background(), sampleJob(), false, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Accepted || outcome.Rejected != "/in/a.ts" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(matcher.seen) != 1 {
		t.Fatalf("expected evaluation to stop after rejection, saw %v", matcher.seen)
	}
	if len(transcoder.calls) != 0 {
		t.Fatal("rejected job must not transcode")
	}
}

func TestRunWithoutFilterSkipsMatching(t *testing.T) {
	matcher := &fakeMatcher{err: errors.New("should not be called")}
	transcoder := &fakeTranscoder{}
	job := sampleJob()
	job.Filter = nil

	outcome, err := New(matcher, transcoder, nil).Run(context.Background(), job, false, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Accepted || len(matcher.seen) != 0 {
		t.Fatalf("expected unfiltered job to run, outcome=%+v seen=%v", outcome, matcher.seen)
	}
}

func TestRunRejectsInvalidFilterBeforeMatching(t *testing.T) {
	matcher := &fakeMatcher{}
	job := sampleJob()
	job.Filter = map[string]any{"bogus": 1}

	_, err := New(matcher, &fakeTranscoder{}, nil).Run(context.Background(), job, false, nil)
	if !errors.Is(err, filter.ErrUnknownSelector) {
		t.Fatalf("expected ErrUnknownSelector, got %v", err)
	}
	if len(matcher.seen) != 0 {
		t.Fatal("matcher should not run for an invalid filter")
	}
}

func TestRunPropagatesMatchError(t *testing.T) {
	boom := errors.New("probe failed")
	_, err := New(&fakeMatcher{err: boom}, &fakeTranscoder{}, nil).Run(context.Background(), sampleJob(), false, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected match error, got %v", err)
	}
}

func TestRunSimulateOverride(t *testing.T) {
	transcoder := &fakeTranscoder{}
	outcome, err := New(&fakeMatcher{}, transcoder, nil).Run(context.Background(), sampleJob(), true, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !transcoder.calls[0].Simulate || !outcome.Result.Simulated {
		t.Fatal("expected simulate flag to reach the transcoder")
	}
}

func TestRunAllStopsOnError(t *testing.T) {
	boom := errors.New("ffmpeg failed")
	transcoder := &fakeTranscoder{err: boom}
	jobs := []Job{sampleJob(), sampleJob()}

	var labels []string
	outcomes, err := New(&fakeMatcher{}, transcoder, nil).RunAll(context.Background(), jobs, false, func(job string, _ int) {
		labels = append(labels, job)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transcode error, got %v", err)
	}
	if len(outcomes) != 1 || len(transcoder.calls) != 1 {
		t.Fatalf("expected to stop after the first job, outcomes=%d calls=%d", len(outcomes), len(transcoder.calls))
	}
	if len(labels) != 1 || labels[0] != "sample" {
		t.Fatalf("unexpected progress labels %v", labels)
	}
}

func TestDecodeJobsMultipleDocuments(t *testing.T) {
	doc := `
name: first
filter:
  count:v: 1
  stream:v:0:
    field_mode: progressive
inputs:
  - path: /in/a.ts
outputs:
  - path: /out/a.mkv
    args: ["-c:v", "libx264"]
---
inputs:
  - path: /in/b.ts
outputs:
  - path: /out/b.mkv
simulate: true
`
	jobs, err := DecodeJobs(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Label() != "first" || jobs[1].Label() != "/out/b.mkv" {
		t.Fatalf("unexpected labels %q %q", jobs[0].Label(), jobs[1].Label())
	}
	if got := jobs[0].Outputs[0].Args; len(got) != 2 || got[1] != "libx264" {
		t.Fatalf("unexpected output args %v", got)
	}
	if !jobs[1].Simulate {
		t.Fatal("expected second job to simulate")
	}
	if _, err := filter.ParseParams(jobs[0].Filter); err != nil {
		t.Fatalf("decoded filter should parse: %v", err)
	}
}

func TestDecodeJobsRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"unknown field":  "inputs: [{path: a}]\noutputs: [{path: b}]\nextra: 1\n",
		"missing input":  "outputs: [{path: b}]\n",
		"missing output": "inputs: [{path: a}]\n",
		"blank path":     "inputs: [{path: ''}]\noutputs: [{path: b}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeJobs(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadJobsReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte("inputs: [{path: a}]\noutputs: [{path: b}]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Inputs[0].Path != "a" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
	if _, err := LoadJobs(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
