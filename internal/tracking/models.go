package tracking

import (
	"time"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/detect"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// SensorRequest is one device tick: a position fix plus whatever motion
// metadata the platform reported alongside it.
type SensorRequest struct {
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Timestamp         time.Time `json:"timestamp"`
	TimezoneOffsetMin int       `json:"timezone_offset_minutes"`
	Accuracy          *float64  `json:"accuracy,omitempty"`
	Altitude          *float64  `json:"altitude,omitempty"`
	Speed             *float64  `json:"speed,omitempty"`
	Heading           *float64  `json:"heading,omitempty"`

	Activity *ActivityPayload `json:"activity,omitempty"`
	Accel    *AccelPayload    `json:"accelerometer,omitempty"`
}

type ActivityPayload struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type AccelPayload struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// ToInput converts the wire payload to an engine tick. Missing timestamps
// default to now.
func (r SensorRequest) ToInput(now time.Time) detect.SensorInput {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = now
	}

	in := detect.SensorInput{
		Position: detect.PositionSample{
			Latitude:          r.Latitude,
			Longitude:         r.Longitude,
			Timestamp:         ts,
			TimezoneOffsetMin: r.TimezoneOffsetMin,
			AccuracyM:         r.Accuracy,
			SpeedMps:          r.Speed,
			HeadingDeg:        r.Heading,
			AltitudeM:         r.Altitude,
		},
	}
	if r.Activity != nil {
		in.ActivityType = r.Activity.Type
		in.ActivityConfidence = r.Activity.Confidence
	}
	if r.Accel != nil {
		accelTS := r.Accel.Timestamp
		if accelTS.IsZero() {
			accelTS = ts
		}
		in.Accel = &detect.AccelSample{
			X:         r.Accel.X,
			Y:         r.Accel.Y,
			Z:         r.Accel.Z,
			Timestamp: accelTS,
		}
	}
	return in
}

// ControlRequest starts or stops a trip on user request.
type ControlRequest struct {
	Action     string          `json:"action"` // "start" or "stop"
	Mode       string          `json:"mode,omitempty"`
	Purpose    string          `json:"purpose,omitempty"`
	Companions trip.Companions `json:"companions"`
	Notes      string          `json:"notes,omitempty"`
}

// ControlResponse reports what the control action did. Changed is false for
// the no-op cases: start while active, stop while idle.
type ControlResponse struct {
	Changed bool          `json:"changed"`
	Trip    *trip.Summary `json:"trip,omitempty"`
	State   detect.State  `json:"state"`
}
