package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mediasieve/internal/media/ffmpeg"
)

// Job is one filter-gated transcode.
type Job struct {
	Name        string          `yaml:"name"`
	Filter      map[string]any  `yaml:"filter"`
	GeneralArgs []string        `yaml:"general_args"`
	Inputs      []ffmpeg.Input  `yaml:"inputs"`
	Outputs     []ffmpeg.Output `yaml:"outputs"`
	Simulate    bool            `yaml:"simulate"`
}

// Label returns the job name or, when unnamed, its first output path.
func (j Job) Label() string {
	if name := strings.TrimSpace(j.Name); name != "" {
		return name
	}
	if len(j.Outputs) > 0 {
		return j.Outputs[0].Path
	}
	return "(unnamed)"
}

// Validate checks the job shape without touching the filesystem.
func (j Job) Validate() error {
	if len(j.Inputs) == 0 {
		return errors.New("job needs at least one input")
	}
	if len(j.Outputs) == 0 {
		return errors.New("job needs at least one output")
	}
	for i, in := range j.Inputs {
		if strings.TrimSpace(in.Path) == "" {
			return fmt.Errorf("inputs[%d]: path required", i)
		}
	}
	for i, out := range j.Outputs {
		if strings.TrimSpace(out.Path) == "" {
			return fmt.Errorf("outputs[%d]: path required", i)
		}
	}
	return nil
}

// DecodeJobs reads one job per YAML document.
func DecodeJobs(r io.Reader) ([]Job, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var jobs []Job
	for {
		var job Job
		err := dec.Decode(&job)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode job %d: %w", len(jobs)+1, err)
		}
		if err := job.Validate(); err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", len(jobs)+1, job.Label(), err)
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, errors.New("no jobs defined")
	}
	return jobs, nil
}

// LoadJobs reads a job file.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	jobs, err := DecodeJobs(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}
