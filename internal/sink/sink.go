// Package sink abstracts the remote trip store. Two implementations exist: a
// REST sink for hosted PostgREST-style backends and a direct Postgres sink
// for self-hosted deployments.
package sink

import (
	"context"
	"errors"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// ErrAuthExpired signals that the backend rejected our credentials. Callers
// must stop retrying and surface a re-authentication request; retrying with
// the same credentials can never succeed.
var ErrAuthExpired = errors.New("sink: authentication expired")

// ErrUnavailable signals a transient failure. Queued data stays put and a
// later flush retries it.
var ErrUnavailable = errors.New("sink: backend unavailable")

// Sink writes finalized trips and point batches to the remote store.
// Both operations are idempotent upserts keyed on stable ids, so replaying a
// queue item after a crash is safe.
type Sink interface {
	UpsertTrip(ctx context.Context, rec trip.Record) error
	InsertPoints(ctx context.Context, points []trip.PointRecord) error
}
