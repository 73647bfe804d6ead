package trip

import "time"

// Companions counts who travelled along on a trip.
type Companions struct {
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	Seniors      int    `json:"seniors"`
	Relationship string `json:"relationship,omitempty"`
}

// Summary is one logical trip. EndedAt is nil while the trip is active; the
// detection engine guarantees at most one active trip per user.
type Summary struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	DistanceM         float64    `json:"distance_m"`
	Mode              string     `json:"mode"`
	Purpose           string     `json:"purpose"`
	Companions        Companions `json:"companions"`
	OriginRegion      string     `json:"origin_region,omitempty"`
	DestinationRegion string     `json:"destination_region,omitempty"`
	TripNumber        string     `json:"trip_number,omitempty"`
	ChainID           string     `json:"chain_id,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	PointCount        int        `json:"point_count"`
	StartedBy         string     `json:"started_by"` // "manual" or "auto"
}

// Active reports whether the trip has not been stopped yet.
func (s *Summary) Active() bool { return s.EndedAt == nil }

// Duration returns the trip duration, using now for an active trip.
func (s *Summary) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Point is one persisted route sample belonging to exactly one trip.
// Immutable after creation.
type Point struct {
	TripID            string    `json:"trip_id"`
	UserID            string    `json:"user_id"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Timestamp         time.Time `json:"timestamp"`
	TimezoneOffsetMin int       `json:"timezone_offset_minutes"`
	Accuracy          *float64  `json:"accuracy,omitempty"`
	Altitude          *float64  `json:"altitude,omitempty"`
	Speed             *float64  `json:"speed,omitempty"`
	Heading           *float64  `json:"heading,omitempty"`
}

// LatLng is a coordinate pair as the persistence sink expects it.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Record is the trip upsert shape written to the persistence sink.
// Start/end locations carry the coarse region grid centroid, never the raw
// endpoint coordinates.
type Record struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	StartLocation     LatLng     `json:"start_location"`
	EndLocation       LatLng     `json:"end_location"`
	DistanceKm        float64    `json:"distance_km"`
	DurationMin       int        `json:"duration_min"`
	Timestamp         time.Time  `json:"timestamp"`
	Mode              string     `json:"mode"`
	Purpose           string     `json:"purpose"`
	Companions        Companions `json:"companions"`
	OriginRegion      string     `json:"origin_region,omitempty"`
	DestinationRegion string     `json:"destination_region,omitempty"`
	TripNumber        string     `json:"trip_number,omitempty"`
	ChainID           string     `json:"chain_id,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// PointRecord is the route point batch-insert shape written to the sink.
type PointRecord struct {
	TripID            string    `json:"trip_id"`
	UserID            string    `json:"user_id"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Timestamp         time.Time `json:"timestamp"`
	TimezoneOffsetMin int       `json:"timezone_offset_minutes"`
	Accuracy          *float64  `json:"accuracy,omitempty"`
	Altitude          *float64  `json:"altitude,omitempty"`
	Speed             *float64  `json:"speed,omitempty"`
	Heading           *float64  `json:"heading,omitempty"`
}

// ToRecord converts a finalized summary into the sink upsert shape.
func (s *Summary) ToRecord() Record {
	rec := Record{
		ID:                s.ID,
		UserID:            s.UserID,
		DistanceKm:        s.DistanceM / 1000,
		Timestamp:         s.StartedAt,
		Mode:              s.Mode,
		Purpose:           s.Purpose,
		Companions:        s.Companions,
		OriginRegion:      s.OriginRegion,
		DestinationRegion: s.DestinationRegion,
		TripNumber:        s.TripNumber,
		ChainID:           s.ChainID,
		Notes:             s.Notes,
	}
	if s.OriginRegion != "" {
		lat, lng, ok := RegionCentroid(s.OriginRegion)
		if ok {
			rec.StartLocation = LatLng{Lat: lat, Lng: lng}
		}
	}
	if s.DestinationRegion != "" {
		lat, lng, ok := RegionCentroid(s.DestinationRegion)
		if ok {
			rec.EndLocation = LatLng{Lat: lat, Lng: lng}
		}
	}
	if s.EndedAt != nil {
		rec.DurationMin = int(s.EndedAt.Sub(s.StartedAt).Minutes())
	}
	return rec
}

// ToPointRecords converts buffered points into the sink batch shape.
func ToPointRecords(points []Point) []PointRecord {
	records := make([]PointRecord, 0, len(points))
	for _, p := range points {
		records = append(records, PointRecord{
			TripID:            p.TripID,
			UserID:            p.UserID,
			Latitude:          p.Latitude,
			Longitude:         p.Longitude,
			Timestamp:         p.Timestamp,
			TimezoneOffsetMin: p.TimezoneOffsetMin,
			Accuracy:          p.Accuracy,
			Altitude:          p.Altitude,
			Speed:             p.Speed,
			Heading:           p.Heading,
		})
	}
	return records
}
