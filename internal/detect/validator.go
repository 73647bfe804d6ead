package detect

import "time"

// MeaningfulTrip reports whether a completed trip is worth persisting.
// Auto-detected non-trips are expected noise, so a false here is a normal
// outcome, not an error.
func MeaningfulTrip(cfg Config, distanceM float64, duration time.Duration) bool {
	ok, _ := ValidateTrip(cfg, distanceM, duration)
	return ok
}

// ValidateTrip applies the minimum-distance, minimum-duration and
// plausible-average-speed gates, returning the first failing reason.
func ValidateTrip(cfg Config, distanceM float64, duration time.Duration) (bool, string) {
	minDistance := cfg.MinTripDistanceM
	minDuration := cfg.MinTripDuration
	if cfg.StrictValidation {
		minDistance = cfg.StrictMinTripDistanceM
		minDuration = cfg.StrictMinTripDuration
	}

	if distanceM < minDistance {
		return false, "distance below minimum"
	}
	if duration < minDuration {
		return false, "duration below minimum"
	}

	avgKmh := distanceM / 1000 / duration.Hours()
	if avgKmh > cfg.MaxAvgSpeedKmh {
		return false, "average speed implausibly high"
	}
	if avgKmh < cfg.MinAvgSpeedKmh {
		return false, "average speed implausibly low"
	}
	return true, ""
}
