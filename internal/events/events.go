// Package events carries checkout notifications from the order transaction to
// Kafka through a transactional outbox table.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "order.placed"

type Event struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Key       string          `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

type OrderPlaced struct {
	OrderID        int64           `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	Channel        string          `json:"channel"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	PointsEarned   int64           `json:"points_earned"`
}

func NewOrderPlaced(p OrderPlaced) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   uuid.NewString(),
		Type:      EventOrderPlaced,
		Key:       strconv.FormatInt(p.OrderID, 10),
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}, nil
}
