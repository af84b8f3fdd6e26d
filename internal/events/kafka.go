package events

import (
	"github.com/segmentio/kafka-go"
)

type KafkaClient struct {
	Brokers []string
}

func NewKafkaClient(brokers []string) *KafkaClient {
	return &KafkaClient{Brokers: brokers}
}

func (c *KafkaClient) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer that routes each message by its own Topic, so a
// single writer serves every outbox topic.
func (c *KafkaClient) NewWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}
