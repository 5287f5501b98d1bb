// Package outbox implements the transactional outbox: outgoing events are
// appended to a local table inside the same database transaction as the
// business mutation that produced them, then shipped to the bus by a
// periodic publisher. A row lives from that commit until its publish has
// been confirmed and the row deleted.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Event is one pending outbox row. Payload is the JSON-encoded wire event;
// the store never interprets it.
type Event struct {
	ID        int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Store reads and writes the outbox_events table of one service.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append encodes payload and inserts the row using tx, so the event commits
// or rolls back together with the business mutation. An encode failure is
// returned to the caller and must abort the whole transaction: a committed
// mutation with no outbox row would be a silently lost message.
func (s *Store) Append(tx *sql.Tx, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload for %s: %w", eventType, err)
	}
	query := `
		INSERT INTO outbox_events (event_type, payload, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(query, eventType, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}
	return nil
}

// OldestBatch returns up to limit pending rows, oldest first. The ordering
// is a FIFO hint only: a row that failed to publish is retried behind rows
// created after it.
func (s *Store) OldestBatch(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, event_type, payload, created_at
		FROM outbox_events
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox events: %w", err)
	}
	return events, nil
}

// Delete removes the rows whose publish was confirmed. If this fails the
// rows are republished next cycle, which is safe because all consumers are
// idempotent.
func (s *Store) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM outbox_events WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete outbox events: %w", err)
	}
	return nil
}
