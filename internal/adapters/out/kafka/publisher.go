// Package kafka announces committed order status changes on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/ports"

	"github.com/IBM/sarama"
)

// DefaultTopic receives one message per committed order write.
const DefaultTopic = "order.status"

// StatusChangedEvent is the message value. The message key is the order id,
// so all events of one order land in one partition, in commit order.
type StatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	PartnerID *string   `json:"partner_id,omitempty"`
	Final     bool      `json:"final"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConfig returns the producer settings: every in-sync replica acknowledges
// and failed sends are retried a few times.
func NewConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = 30 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// EventPublisher implements ports.OrderEventPublisher on a sarama.SyncProducer.
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

var _ ports.OrderEventPublisher = (*EventPublisher)(nil)

// NewEventPublisher connects a sync producer to brokers.
func NewEventPublisher(brokers []string, topic string, logger *slog.Logger) (*EventPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewEventPublisherWithProducer(producer, topic, logger), nil
}

// NewEventPublisherWithProducer wraps an existing producer.
func NewEventPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With("component", "kafka_event_publisher", "topic", topic),
	}
}

// PublishStatusChanged sends the current state of aggregate.
func (p *EventPublisher) PublishStatusChanged(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := StatusChangedEvent{
		OrderID:   aggregate.ID().String(),
		Mode:      aggregate.Mode().Code(),
		Status:    aggregate.Status().Code(),
		Final:     aggregate.IsFinal(),
		UpdatedAt: aggregate.UpdatedAt().UTC(),
	}
	if partnerID := aggregate.PartnerID(); partnerID != nil {
		s := partnerID.String()
		event.PartnerID = &s
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send status event for order %s: %w", event.OrderID, err)
	}

	p.logger.DebugContext(ctx, "Status event sent",
		"order_id", event.OrderID, "status", event.Status, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and closes the producer.
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}
