// Package queue is the durable on-device sync buffer. Every outbound record
// is written here before any network attempt, so pending data survives
// process restarts. Rows are removed only after the remote sink acknowledges
// them.
package queue

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Item kinds. A trip item carries a summary upsert, a points item carries a
// location batch.
const (
	KindTrip   = "trip"
	KindPoints = "points"
)

// Item is one queued upload unit.
type Item struct {
	ID         int64
	Kind       string
	UserID     string
	TripID     string
	Payload    []byte
	Attempts   int
	EnqueuedAt time.Time
}

// Queue is a FIFO backed by a local sqlite file.
type Queue struct {
	db *sql.DB
}

// Open opens (creating if needed) the queue database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	// sqlite allows one writer; funnel everything through a single conn.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_queue (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			trip_id     TEXT NOT NULL DEFAULT '',
			payload     BLOB NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0,
			enqueued_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_enqueued ON sync_queue(enqueued_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue schema: %w", err)
	}

	return &Queue{db: db}, nil
}

// Enqueue appends one item and returns its id.
func (q *Queue) Enqueue(kind, userID, tripID string, payload []byte, at time.Time) (int64, error) {
	res, err := q.db.Exec(
		`INSERT INTO sync_queue (kind, user_id, trip_id, payload, enqueued_at)
		 VALUES (?, ?, ?, ?, ?)`,
		kind, userID, tripID, payload, at.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return res.LastInsertId()
}

// Peek returns up to limit items in insertion order without removing them.
func (q *Queue) Peek(limit int) ([]Item, error) {
	rows, err := q.db.Query(
		`SELECT id, kind, user_id, trip_id, payload, attempts, enqueued_at
		 FROM sync_queue ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("peek queue: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var enqueued int64
		if err := rows.Scan(&it.ID, &it.Kind, &it.UserID, &it.TripID,
			&it.Payload, &it.Attempts, &enqueued); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		it.EnqueuedAt = time.Unix(enqueued, 0).UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}

// Delete removes acknowledged items by id in one transaction.
func (q *Queue) Delete(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := q.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.Exec(
		`DELETE FROM sync_queue WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete queue items: %w", err)
	}
	return tx.Commit()
}

// MarkAttempt bumps the attempt counter on items that failed to upload.
func (q *Queue) MarkAttempt(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := q.db.Exec(
		`UPDATE sync_queue SET attempts = attempts + 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark attempts: %w", err)
	}
	return nil
}

// Count returns the number of pending items.
func (q *Queue) Count() (int, error) {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

// OldestEnqueuedAt returns the enqueue time of the oldest pending item.
// The second result is false when the queue is empty.
func (q *Queue) OldestEnqueuedAt() (time.Time, bool, error) {
	var enqueued sql.NullInt64
	err := q.db.QueryRow(`SELECT MIN(enqueued_at) FROM sync_queue`).Scan(&enqueued)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest queue item: %w", err)
	}
	if !enqueued.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(enqueued.Int64, 0).UTC(), true, nil
}

// Trim drops the oldest items until at most max remain. Returns the number of
// rows removed.
func (q *Queue) Trim(max int) (int64, error) {
	res, err := q.db.Exec(
		`DELETE FROM sync_queue WHERE id NOT IN
		 (SELECT id FROM sync_queue ORDER BY id DESC LIMIT ?)`, max)
	if err != nil {
		return 0, fmt.Errorf("trim queue: %w", err)
	}
	return res.RowsAffected()
}

// PurgeOlderThan drops items enqueued before cutoff. Returns the number of
// rows removed.
func (q *Queue) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res, err := q.db.Exec(
		`DELETE FROM sync_queue WHERE enqueued_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge queue: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}
