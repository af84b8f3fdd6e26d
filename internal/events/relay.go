package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/logging"
	"github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Writer.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Relay struct {
	db        *sql.DB
	publisher Publisher
	interval  time.Duration
	batchSize int
}

func NewRelay(db *sql.DB, publisher Publisher, interval time.Duration, batchSize int) *Relay {
	if batchSize < 1 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{db: db, publisher: publisher, interval: interval, batchSize: batchSize}
}

// Run drains the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				n, err := r.Flush(ctx)
				if err != nil {
					logging.Error("outbox-relay", "flush", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// Flush publishes one batch of pending records and marks them sent. The
// records stay pending if publishing fails.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var sent int

	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		records, err := FetchPending(ctx, tx, r.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			msgs = append(msgs, kafka.Message{
				Topic: rec.Topic,
				Key:   []byte(rec.Key),
				Value: rec.Payload,
				Time:  rec.CreatedAt,
			})
			ids = append(ids, rec.ID)
		}

		if err := r.publisher.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish %d event(s): %w", len(msgs), err)
		}

		if err := MarkSent(ctx, tx, ids); err != nil {
			return err
		}
		sent = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if sent > 0 {
		logging.Log(logging.Fields{Component: "outbox-relay", Step: "flush", Status: "ok", Message: fmt.Sprintf("published %d event(s)", sent)})
	}
	return sent, nil
}
