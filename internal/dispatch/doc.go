// Package dispatch runs filter-gated transcode jobs: each job's inputs are
// probed and matched against its filter, and ffmpeg runs only when every
// input passes.
package dispatch
