package logging

import "strings"

// ProgressSampler suppresses repetitive pass progress logs while preserving
// signal when the pass or the percentage bucket changes.
type ProgressSampler struct {
	bucketSize float64
	lastPass   string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the pass changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress line should be logged. A negative
// percent means the input size is unknown; only pass changes emit then.
func (s *ProgressSampler) ShouldLog(percent float64, pass string) bool {
	if s == nil {
		return true
	}
	pass = strings.TrimSpace(pass)
	emit := false
	if pass != "" && pass != s.lastPass {
		s.lastPass = pass
		emit = true
		s.lastBucket = -1
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state before a new run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastPass = ""
	s.lastBucket = -1
}
