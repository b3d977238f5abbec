package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/punchamoorthee/idempay/internal/models"
	"github.com/segmentio/kafka-go"
)

// Event is a payment lifecycle notification emitted after a durable state
// transition has been committed.
type Event struct {
	IdempotencyKey string              `json:"idempotency_key"`
	TransactionID  string              `json:"transaction_id,omitempty"`
	Amount         int64               `json:"amount"`
	State          models.PaymentState `json:"state"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// Publisher emits payment events to downstream consumers. Publishing is
// best effort and never participates in the idempotency protocol.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes payment events to a kafka topic, keyed by
// idempotency key so events for one payment stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.IdempotencyKey),
		Value: v,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
