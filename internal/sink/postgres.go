package sink

import (
	"context"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/db"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// PostgresSink writes directly to Postgres. Self-hosted deployments skip the
// REST layer and point the coordinator here.
type PostgresSink struct {
	db db.Querier
}

// NewPostgresSink builds a sink on top of an existing pool.
func NewPostgresSink(querier db.Querier) *PostgresSink {
	return &PostgresSink{db: querier}
}

// UpsertTrip writes one trip record, overwriting a previous version of the
// same trip id.
func (s *PostgresSink) UpsertTrip(ctx context.Context, rec trip.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (id, user_id, start_lat, start_lng, end_lat, end_lng,
			distance_km, duration_min, timestamp, mode, purpose,
			companions_adults, companions_children, companions_seniors,
			origin_region, destination_region, trip_number, chain_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (id) DO UPDATE SET
			end_lat = EXCLUDED.end_lat,
			end_lng = EXCLUDED.end_lng,
			distance_km = EXCLUDED.distance_km,
			duration_min = EXCLUDED.duration_min,
			mode = EXCLUDED.mode,
			purpose = EXCLUDED.purpose,
			destination_region = EXCLUDED.destination_region,
			notes = EXCLUDED.notes
	`, rec.ID, rec.UserID, rec.StartLocation.Lat, rec.StartLocation.Lng,
		rec.EndLocation.Lat, rec.EndLocation.Lng,
		rec.DistanceKm, rec.DurationMin, rec.Timestamp, rec.Mode, rec.Purpose,
		rec.Companions.Adults, rec.Companions.Children, rec.Companions.Seniors,
		rec.OriginRegion, rec.DestinationRegion, rec.TripNumber, rec.ChainID, rec.Notes)
	return err
}

// InsertPoints writes one point batch. Duplicate points from a replayed
// queue item are ignored.
func (s *PostgresSink) InsertPoints(ctx context.Context, points []trip.PointRecord) error {
	for _, p := range points {
		_, err := s.db.Exec(ctx, `
			INSERT INTO locations (trip_id, user_id, latitude, longitude,
				timestamp, timezone_offset_minutes, accuracy, altitude, speed, heading)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (trip_id, timestamp) DO NOTHING
		`, p.TripID, p.UserID, p.Latitude, p.Longitude,
			p.Timestamp, p.TimezoneOffsetMin, p.Accuracy, p.Altitude, p.Speed, p.Heading)
		if err != nil {
			return err
		}
	}
	return nil
}
