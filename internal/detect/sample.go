package detect

import "time"

// PositionSample is one GPS/network fix as delivered by the device location
// source. Optional metadata uses pointers; a nil field means the platform did
// not report it. Immutable once created.
type PositionSample struct {
	Latitude          float64
	Longitude         float64
	Timestamp         time.Time
	TimezoneOffsetMin int
	AccuracyM         *float64 // horizontal accuracy, meters
	SpeedMps          *float64
	HeadingDeg        *float64
	AltitudeM         *float64
}

// Speed returns the reported speed and whether one was reported at all.
func (s PositionSample) Speed() (float64, bool) {
	if s.SpeedMps == nil {
		return 0, false
	}
	return *s.SpeedMps, true
}

// AccelSample is a single 3-axis accelerometer reading.
type AccelSample struct {
	X, Y, Z   float64
	Timestamp time.Time
}

// SensorInput is the combined per-tick payload from a device: a position fix
// plus optional activity recognition and motion sensor data.
type SensorInput struct {
	Position           PositionSample
	ActivityType       string   // raw platform label, may be empty
	ActivityConfidence *float64 // [0,1]
	Accel              *AccelSample
}

// LocationQuality rates a fix by its horizontal accuracy.
func LocationQuality(accuracyM *float64) string {
	if accuracyM == nil {
		return "unknown"
	}
	switch acc := *accuracyM; {
	case acc <= 5:
		return "excellent"
	case acc <= 15:
		return "good"
	case acc <= 50:
		return "fair"
	default:
		return "poor"
	}
}
