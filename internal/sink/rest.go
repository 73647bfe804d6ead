package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// RESTSink writes to a PostgREST-style API (Supabase and compatible). Trip
// upserts use the merge-duplicates resolution so a replayed queue item
// overwrites instead of erroring on the duplicate key.
type RESTSink struct {
	client *resty.Client
	logger *zap.Logger
}

// NewRESTSink builds a sink for baseURL using apiKey for both the key header
// and the bearer token.
func NewRESTSink(baseURL, apiKey string, logger *zap.Logger) *RESTSink {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", apiKey).
		SetAuthToken(apiKey)

	return &RESTSink{client: client, logger: logger}
}

// SetAuthToken swaps the bearer token, e.g. after the user re-authenticates.
func (s *RESTSink) SetAuthToken(token string) {
	s.client.SetAuthToken(token)
}

// UpsertTrip writes one trip record.
func (s *RESTSink) UpsertTrip(ctx context.Context, rec trip.Record) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody([]trip.Record{rec}).
		Post("/rest/v1/trips")
	if err != nil {
		return fmt.Errorf("upsert trip %s: %w", rec.ID, ErrUnavailable)
	}
	return s.check(resp, "trips")
}

// InsertPoints writes one point batch.
func (s *RESTSink) InsertPoints(ctx context.Context, points []trip.PointRecord) error {
	if len(points) == 0 {
		return nil
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=ignore-duplicates").
		SetBody(points).
		Post("/rest/v1/locations")
	if err != nil {
		return fmt.Errorf("insert %d points: %w", len(points), ErrUnavailable)
	}
	return s.check(resp, "locations")
}

func (s *RESTSink) check(resp *resty.Response, table string) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		s.logger.Warn("backend rejected credentials",
			zap.String("table", table),
			zap.Int("status", code))
		return ErrAuthExpired
	case code >= 400:
		s.logger.Warn("backend write failed",
			zap.String("table", table),
			zap.Int("status", code),
			zap.ByteString("body", resp.Body()))
		return fmt.Errorf("write %s: status %d: %w", table, code, ErrUnavailable)
	}
	return nil
}
