package detect

import (
	"math"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/geo"
)

// SampleFilter rejects fixes that are sensor noise rather than signal: poor
// accuracy, out-of-range coordinates, sub-noise-floor jitter while stationary,
// and implausible jumps (GPS glitches). Its only state is the last accepted
// sample, which becomes the reference for the next decision.
type SampleFilter struct {
	last    PositionSample
	hasLast bool
}

// Accept decides whether a sample is signal. An accepted sample replaces the
// previous reference; a rejected one leaves it untouched.
func (f *SampleFilter) Accept(s PositionSample, cfg Config) bool {
	if !geo.ValidCoordinate(s.Latitude, s.Longitude) {
		return false
	}
	if s.AccuracyM != nil {
		acc := *s.AccuracyM
		if math.IsNaN(acc) || math.IsInf(acc, 0) || acc > cfg.AccuracyCeilingM {
			return false
		}
	}

	if f.hasLast {
		d := geo.DistanceM(f.last.Latitude, f.last.Longitude, s.Latitude, s.Longitude)

		// Jitter: the device has not plausibly moved.
		if d < cfg.NoiseFloorM {
			return false
		}

		// Glitch: further than the maximum plausible speed allows for the
		// elapsed time. With a missing or non-increasing timestamp only the
		// flat teleport guard applies.
		limit := cfg.TeleportGuardM
		if elapsed := s.Timestamp.Sub(f.last.Timestamp); elapsed > 0 {
			byTime := cfg.MaxPlausibleSpeedKmh / 3.6 * elapsed.Seconds()
			if byTime > limit {
				limit = byTime
			}
		}
		if d > limit {
			return false
		}
	}

	f.last = s
	f.hasLast = true
	return true
}

// Last returns the current reference sample, if any.
func (f *SampleFilter) Last() (PositionSample, bool) {
	return f.last, f.hasLast
}

// Reset clears the reference sample, e.g. after a long tracking gap.
func (f *SampleFilter) Reset() {
	f.last = PositionSample{}
	f.hasLast = false
}
