package logging

// DefaultFrameBucket is the frame interval used when a sampler is built with a
// non-positive bucket size.
const DefaultFrameBucket = 250

// ProgressSampler suppresses repetitive transcode progress logs, emitting only
// when the reported frame counter enters a new bucket.
type ProgressSampler struct {
	bucketSize int
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits once per bucketSize frames.
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = DefaultFrameBucket
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event for frame should be logged.
// Counters that move backwards (a new pass) are treated as a restart.
func (s *ProgressSampler) ShouldLog(frame int) bool {
	if s == nil {
		return true
	}
	if frame < 0 {
		return false
	}
	bucket := frame / s.bucketSize
	if bucket < s.lastBucket {
		s.lastBucket = -1
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new run starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
