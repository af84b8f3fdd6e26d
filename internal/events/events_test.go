package events

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderPlaced(t *testing.T) {
	ev, err := NewOrderPlaced(OrderPlaced{
		OrderID:        42,
		CustomerID:     "7c1e9a52-3f0b-4c55-9f7e-0d4b8f8e2a11",
		Channel:        "online",
		Status:         "Pending",
		TotalAmount:    decimal.NewFromInt(100_000),
		DiscountAmount: decimal.NewFromInt(10_000),
		FinalAmount:    decimal.NewFromInt(90_000),
		PointsEarned:   10_000,
	})
	require.NoError(t, err)

	assert.Equal(t, EventOrderPlaced, ev.Type)
	assert.Equal(t, "42", ev.Key)
	assert.NotEmpty(t, ev.EventID)
	assert.False(t, ev.CreatedAt.IsZero())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, float64(42), payload["order_id"])
	assert.Equal(t, "90000", payload["final_amount"])
	assert.Equal(t, float64(10_000), payload["points_earned"])

	other, err := NewOrderPlaced(OrderPlaced{OrderID: 42})
	require.NoError(t, err)
	assert.NotEqual(t, ev.EventID, other.EventID)
}

func TestEventEnvelopeOmitsKey(t *testing.T) {
	ev, err := NewOrderPlaced(OrderPlaced{OrderID: 1})
	require.NoError(t, err)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"key"`)
	assert.Contains(t, string(data), `"type":"order.placed"`)
}

func TestKafkaClient(t *testing.T) {
	assert.False(t, NewKafkaClient(nil).Enabled())

	client := NewKafkaClient([]string{"localhost:9092", "localhost:9093"})
	require.True(t, client.Enabled())

	w := client.NewWriter()
	assert.Empty(t, w.Topic, "topic comes from each message")
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.NotNil(t, w.Addr)
}
