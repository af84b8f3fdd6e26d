package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// Insert stores ev in the outbox as part of tx. The stored payload is the
// whole event envelope.
func Insert(ctx context.Context, tx *sql.Tx, topic string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (event_id, topic, key, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.EventID, topic, ev.Key, data, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchPending locks up to limit unsent records, skipping rows another relay
// already holds.
func FetchPending(ctx context.Context, tx *sql.Tx, limit int) ([]Record, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, event_id, topic, key, payload, created_at, sent_at
		 FROM outbox
		 WHERE sent_at IS NULL
		 ORDER BY id
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func MarkSent(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = $1`, id); err != nil {
			return fmt.Errorf("mark event %d sent: %w", id, err)
		}
	}
	return nil
}
