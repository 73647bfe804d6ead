package detect

import (
	"math"
	"sync"
	"time"
)

// MovementState is the classifier's opinion for the current window. It is
// recomputed from the trailing window on every read and never persisted.
//
// Below the minimum sample count the state is "no opinion": Moving is false
// and Confidence is zero. Callers must not read that as "stationary".
type MovementState struct {
	Moving       bool    `json:"is_moving"`
	Confidence   float64 `json:"confidence"`
	AvgMagnitude float64 `json:"average_magnitude"`
	SampleCount  int     `json:"sample_count"`
}

// HasOpinion reports whether enough samples were available to classify.
func (m MovementState) HasOpinion() bool { return m.SampleCount > 0 && m.Confidence > 0 }

type magnitudeSample struct {
	at  time.Time
	mag float64
}

// MotionClassifier keeps a trailing time-and-capacity-boxed window of
// accelerometer magnitudes and derives a moving/not-moving signal from it.
// It has no memory beyond the window itself.
type MotionClassifier struct {
	mu     sync.Mutex
	window []magnitudeSample
}

// Ingest adds one accelerometer reading and evicts samples that have fallen
// out of the window.
func (c *MotionClassifier) Ingest(s AccelSample, cfg Config) {
	mag := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = append(c.window, magnitudeSample{at: s.Timestamp, mag: mag})
	c.evict(s.Timestamp, cfg)
}

// Current classifies the present window.
func (c *MotionClassifier) Current(cfg Config) MovementState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classify(cfg)
}

// CurrentAt evicts samples that have aged out as of now, then classifies.
// A stream that went quiet decays to the no-data state instead of holding
// its last partial window forever.
func (c *MotionClassifier) CurrentAt(now time.Time, cfg Config) MovementState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(now, cfg)
	return c.classify(cfg)
}

// classify derives the movement signal from the window. Caller holds the
// lock.
func (c *MotionClassifier) classify(cfg Config) MovementState {
	n := len(c.window)
	if n < cfg.MotionMinSamples {
		// Not enough data for an opinion.
		return MovementState{SampleCount: n}
	}

	var sum float64
	for _, s := range c.window {
		sum += s.mag
	}
	avg := sum / float64(n)

	var variance float64
	for _, s := range c.window {
		d := s.mag - avg
		variance += d * d
	}
	variance /= float64(n)

	peaks := c.countPeaks(cfg.StationaryMagnitude)

	moving := avg > cfg.MovementMagnitude ||
		(variance > cfg.ElevatedVariance && avg > cfg.StationaryMagnitude) ||
		peaks >= 3

	confidence := 0.0
	switch {
	case avg > cfg.MovementMagnitude:
		confidence += 0.4
	case avg > cfg.StationaryMagnitude:
		confidence += 0.2
	}
	if variance < cfg.LowVariance {
		confidence += 0.3
	}
	confidence += 0.3 * math.Min(1, float64(n)/float64(cfg.MotionMinSamples))
	if confidence > 1 {
		confidence = 1
	}

	return MovementState{
		Moving:       moving,
		Confidence:   confidence,
		AvgMagnitude: avg,
		SampleCount:  n,
	}
}

// Reset drops the window.
func (c *MotionClassifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = nil
}

// evict drops samples older than the window duration and trims to capacity.
// Caller holds the lock.
func (c *MotionClassifier) evict(now time.Time, cfg Config) {
	cutoff := now.Add(-cfg.MotionWindow)
	i := 0
	for i < len(c.window) && c.window[i].at.Before(cutoff) {
		i++
	}
	c.window = c.window[i:]

	if limit := cfg.MotionWindowCap; limit > 0 && len(c.window) > limit {
		c.window = c.window[len(c.window)-limit:]
	}
}

// countPeaks counts local maxima above the threshold: the periodic gait
// signature of walking. Caller holds the lock.
func (c *MotionClassifier) countPeaks(threshold float64) int {
	peaks := 0
	for i := 1; i < len(c.window)-1; i++ {
		m := c.window[i].mag
		if m > threshold && m > c.window[i-1].mag && m > c.window[i+1].mag {
			peaks++
		}
	}
	return peaks
}
