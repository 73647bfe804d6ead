package sink

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

func TestPostgresUpsertTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewPostgresSink(mock)

	rec := trip.Record{
		ID:            "trip-1",
		UserID:        "user-1",
		StartLocation: trip.LatLng{Lat: 48.125, Lng: 11.575},
		EndLocation:   trip.LatLng{Lat: 48.175, Lng: 11.625},
		DistanceKm:    4.2,
		DurationMin:   25,
		Timestamp:     time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		Mode:          "bike",
		Purpose:       "commute",
	}

	mock.ExpectExec(`INSERT INTO trips`).
		WithArgs(rec.ID, rec.UserID, rec.StartLocation.Lat, rec.StartLocation.Lng,
			rec.EndLocation.Lat, rec.EndLocation.Lng,
			rec.DistanceKm, rec.DurationMin, rec.Timestamp, rec.Mode, rec.Purpose,
			0, 0, 0, "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.UpsertTrip(context.Background(), rec); err != nil {
		t.Fatalf("upsert trip: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresInsertPoints(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewPostgresSink(mock)

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	points := []trip.PointRecord{
		{TripID: "trip-1", UserID: "user-1", Latitude: 48.1, Longitude: 11.5, Timestamp: at},
		{TripID: "trip-1", UserID: "user-1", Latitude: 48.2, Longitude: 11.6, Timestamp: at.Add(10 * time.Second)},
	}

	for _, p := range points {
		mock.ExpectExec(`INSERT INTO locations`).
			WithArgs(p.TripID, p.UserID, p.Latitude, p.Longitude,
				p.Timestamp, p.TimezoneOffsetMin, p.Accuracy, p.Altitude, p.Speed, p.Heading).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	if err := s.InsertPoints(context.Background(), points); err != nil {
		t.Fatalf("insert points: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
