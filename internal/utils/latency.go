package utils

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent duration samples in a ring and computes percentiles.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	next    int
	full    bool
	total   uint64
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make([]time.Duration, maxSize)}
}

// Observe records a new duration, overwriting the oldest sample once the ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = d
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
	l.total++
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	window := append([]time.Duration(nil), l.window()...)
	l.mu.RUnlock()

	if len(window) == 0 {
		return 0
	}
	slices.Sort(window)
	if p <= 0 {
		return window[0]
	}
	if p >= 100 {
		return window[len(window)-1]
	}
	index := int((p / 100.0) * float64(len(window)-1))
	return window[index]
}

// Count returns the number of samples currently retained.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.window())
}

// Total returns the number of samples observed since creation.
func (l *LatencyTracker) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func (l *LatencyTracker) window() []time.Duration {
	if l.full {
		return l.samples
	}
	return l.samples[:l.next]
}
