// Package syncer moves queued trip data to the remote sink. Writes always
// land in the durable queue first; the network is strictly a drain of the
// queue, so losing connectivity or crashing never loses data.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/queue"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/sink"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// Broadcaster pushes live events to a user's connected clients. Optional.
type Broadcaster interface {
	Broadcast(userID string, payload []byte)
}

// Options tunes the drain loop.
type Options struct {
	// SyncInterval is the periodic drain cadence on top of event-triggered
	// kicks.
	SyncInterval time.Duration
	// BatchLimit caps the number of queue items uploaded per drain pass.
	BatchLimit int
	// PointsPerUpload caps how many point records a coalesced sink call
	// carries, keeping each request within the remote payload limit.
	PointsPerUpload int
	// QueueMax is the row cap enforced during maintenance; oldest rows are
	// dropped beyond it.
	QueueMax int
	// Retention is the maximum age of a queued item before maintenance
	// purges it.
	Retention time.Duration
	// MaintenanceInterval is how often the trim/purge pass runs.
	MaintenanceInterval time.Duration
}

// DefaultOptions returns the standard drain tuning.
func DefaultOptions() Options {
	return Options{
		SyncInterval:        30 * time.Second,
		BatchLimit:          200,
		PointsPerUpload:     300,
		QueueMax:            10000,
		Retention:           30 * 24 * time.Hour,
		MaintenanceInterval: 10 * time.Minute,
	}
}

// Status is the externally visible sync state.
type Status struct {
	Online      bool       `json:"online"`
	Pending     int        `json:"pending"`
	OldestItem  *time.Time `json:"oldest_item,omitempty"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	AuthExpired bool       `json:"auth_expired"`
}

// Coordinator is the single writer between the detection engine and the
// remote sink. It satisfies the engine's recorder contract: batches and
// finished trips are durably enqueued immediately, then a background drain
// uploads them in order and deletes only what the sink acknowledged.
type Coordinator struct {
	q    *queue.Queue
	sink sink.Sink
	bc   Broadcaster
	opts Options
	log  *zap.Logger
	kick chan struct{}

	mu          sync.Mutex
	online      bool
	lastSyncAt  time.Time
	lastError   string
	authExpired bool
}

// New builds a coordinator. bc may be nil.
func New(q *queue.Queue, s sink.Sink, bc Broadcaster, opts Options, log *zap.Logger) *Coordinator {
	return &Coordinator{
		q:      q,
		sink:   s,
		bc:     bc,
		opts:   opts,
		log:    log,
		kick:   make(chan struct{}, 1),
		online: true,
	}
}

// RecordBatch durably enqueues a mid-trip point batch and kicks the drain.
func (c *Coordinator) RecordBatch(summary trip.Summary, points []trip.Point) {
	c.enqueuePoints(summary, points)
	c.Kick()
}

// TripFinished durably enqueues the finished trip and its remaining points,
// then kicks the drain. Non-meaningful trips are discarded: any batches
// already uploaded for them stay harmlessly orphaned until backend cleanup.
func (c *Coordinator) TripFinished(summary trip.Summary, points []trip.Point, meaningful bool) {
	if !meaningful {
		c.log.Info("discarding trip below validation thresholds",
			zap.String("trip_id", summary.ID),
			zap.Float64("distance_m", summary.DistanceM))
		return
	}

	c.enqueuePoints(summary, points)

	rec := summary.ToRecord()
	payload, err := json.Marshal(rec)
	if err != nil {
		c.log.Error("marshal trip record", zap.Error(err), zap.String("trip_id", summary.ID))
		return
	}
	if _, err := c.q.Enqueue(queue.KindTrip, summary.UserID, summary.ID, payload, time.Now()); err != nil {
		c.log.Error("enqueue trip", zap.Error(err), zap.String("trip_id", summary.ID))
		return
	}

	if c.bc != nil {
		event, _ := json.Marshal(map[string]any{"type": "trip_finished", "trip": rec})
		c.bc.Broadcast(summary.UserID, event)
	}
	c.Kick()
}

func (c *Coordinator) enqueuePoints(summary trip.Summary, points []trip.Point) {
	if len(points) == 0 {
		return
	}
	payload, err := json.Marshal(trip.ToPointRecords(points))
	if err != nil {
		c.log.Error("marshal point batch", zap.Error(err), zap.String("trip_id", summary.ID))
		return
	}
	if _, err := c.q.Enqueue(queue.KindPoints, summary.UserID, summary.ID, payload, time.Now()); err != nil {
		c.log.Error("enqueue points", zap.Error(err),
			zap.String("trip_id", summary.ID), zap.Int("count", len(points)))
	}
}

// Kick schedules a drain pass without blocking.
func (c *Coordinator) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// SetOnline flips the connectivity flag. Going online kicks a drain so the
// backlog flushes immediately.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	was := c.online
	c.online = online
	c.mu.Unlock()

	if online && !was {
		c.log.Info("connectivity restored, flushing queue")
		c.Kick()
	}
}

// SetAuthRecovered clears the auth-expired latch after re-authentication.
func (c *Coordinator) SetAuthRecovered() {
	c.mu.Lock()
	c.authExpired = false
	c.mu.Unlock()
	c.Kick()
}

// TokenSink is implemented by sinks whose credentials can be refreshed
// at runtime.
type TokenSink interface {
	SetAuthToken(token string)
}

// Reauth installs a fresh sink token when one is supplied, then clears the
// auth-expired latch.
func (c *Coordinator) Reauth(token string) {
	if token != "" {
		if ts, ok := c.sink.(TokenSink); ok {
			ts.SetAuthToken(token)
		}
	}
	c.SetAuthRecovered()
}

// SyncNow drains the queue once, synchronously. Used by the manual sync
// endpoint.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	return c.drain(ctx)
}

// Status reports queue depth and last drain outcome.
func (c *Coordinator) Status() Status {
	pending, err := c.q.Count()
	if err != nil {
		c.log.Error("queue count", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Online:      c.online,
		Pending:     pending,
		LastError:   c.lastError,
		AuthExpired: c.authExpired,
	}
	if !c.lastSyncAt.IsZero() {
		at := c.lastSyncAt
		st.LastSyncAt = &at
	}
	if oldest, ok, err := c.q.OldestEnqueuedAt(); err == nil && ok {
		st.OldestItem = &oldest
	}
	return st
}

// Run drives the drain and maintenance loops until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	drainTicker := time.NewTicker(c.opts.SyncInterval)
	defer drainTicker.Stop()
	maintTicker := time.NewTicker(c.opts.MaintenanceInterval)
	defer maintTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
		case <-drainTicker.C:
		case <-maintTicker.C:
			c.maintain()
			continue
		}
		if err := c.drain(ctx); err != nil {
			c.log.Warn("drain pass failed", zap.Error(err))
		}
	}
}

// drain uploads queued items in insertion order, coalescing each run of
// consecutive point batches into a single sink call. Items are deleted only
// after the sink acknowledged them; any failure leaves the remainder queued.
func (c *Coordinator) drain(ctx context.Context) error {
	c.mu.Lock()
	skip := !c.online || c.authExpired
	c.mu.Unlock()
	if skip {
		return nil
	}

	items, err := c.q.Peek(c.opts.BatchLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var acked []int64
	var failed error

	i := 0
	for i < len(items) {
		if items[i].Kind != queue.KindPoints {
			it := items[i]
			i++
			if err := c.uploadTrip(ctx, it); err != nil {
				failed = err
				c.markAttempt([]int64{it.ID})
				break
			}
			acked = append(acked, it.ID)
			continue
		}

		ids, dropped, points := c.coalescePoints(items, &i)
		acked = append(acked, dropped...)
		if len(points) == 0 {
			continue
		}
		if err := c.sink.InsertPoints(ctx, points); err != nil {
			failed = err
			c.markAttempt(ids)
			break
		}
		acked = append(acked, ids...)
	}

	if len(acked) > 0 {
		if err := c.q.Delete(acked); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if failed != nil {
		c.lastError = failed.Error()
		if errors.Is(failed, sink.ErrAuthExpired) {
			// Distinct terminal signal: retrying cannot help until the user
			// re-authenticates.
			c.authExpired = true
		}
		return failed
	}
	c.lastSyncAt = time.Now()
	c.lastError = ""
	c.log.Info("queue drained", zap.Int("uploaded", len(acked)))
	if len(items) == c.opts.BatchLimit {
		// A full pass means more is likely waiting behind the limit.
		c.Kick()
	}
	return nil
}

// coalescePoints consumes the run of point batches starting at items[*i] and
// merges them into one payload, closing the run once PointsPerUpload is
// reached. Corrupt batches can never succeed; their ids come back in dropped
// so the caller acks them away without an upload.
func (c *Coordinator) coalescePoints(items []queue.Item, i *int) (ids, dropped []int64, points []trip.PointRecord) {
	for *i < len(items) && items[*i].Kind == queue.KindPoints {
		it := items[*i]
		*i++

		var batch []trip.PointRecord
		if err := json.Unmarshal(it.Payload, &batch); err != nil {
			c.log.Error("corrupt points payload, dropping",
				zap.Int64("item_id", it.ID), zap.Error(err))
			dropped = append(dropped, it.ID)
			continue
		}
		ids = append(ids, it.ID)
		points = append(points, batch...)
		if len(points) >= c.opts.PointsPerUpload {
			break
		}
	}
	return ids, dropped, points
}

func (c *Coordinator) uploadTrip(ctx context.Context, it queue.Item) error {
	if it.Kind != queue.KindTrip {
		c.log.Error("unknown queue item kind, dropping",
			zap.Int64("item_id", it.ID), zap.String("kind", it.Kind))
		return nil
	}
	var rec trip.Record
	if err := json.Unmarshal(it.Payload, &rec); err != nil {
		// Corrupt payloads cannot ever succeed; log and ack them away.
		c.log.Error("corrupt trip payload, dropping",
			zap.Int64("item_id", it.ID), zap.Error(err))
		return nil
	}
	return c.sink.UpsertTrip(ctx, rec)
}

func (c *Coordinator) markAttempt(ids []int64) {
	if err := c.q.MarkAttempt(ids); err != nil {
		c.log.Error("queue mark attempt", zap.Error(err))
	}
}

func (c *Coordinator) maintain() {
	if removed, err := c.q.Trim(c.opts.QueueMax); err != nil {
		c.log.Error("queue trim", zap.Error(err))
	} else if removed > 0 {
		c.log.Warn("queue over capacity, trimmed oldest", zap.Int64("removed", removed))
	}

	cutoff := time.Now().Add(-c.opts.Retention)
	if removed, err := c.q.PurgeOlderThan(cutoff); err != nil {
		c.log.Error("queue purge", zap.Error(err))
	} else if removed > 0 {
		c.log.Info("purged expired queue items", zap.Int64("removed", removed))
	}
}
