// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Type names an order lifecycle event.
type Type string

const (
	OrderCreated   Type = "order.created"
	OrderShipped   Type = "order.shipped"
	OrderDelivered Type = "order.delivered"
)

// Event is the payload written to the order topic.
type Event struct {
	ID             string            `json:"id"`
	Type           Type              `json:"type"`
	OrderID        string            `json:"orderId"`
	Status         model.OrderStatus `json:"status"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	TrackingNumber *string           `json:"trackingNumber,omitempty"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// NewOrderEvent builds an event describing the order's current state.
func NewOrderEvent(t Type, order *model.Order) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           t,
		OrderID:        order.ID,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		TrackingNumber: order.TrackingNumber,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order ID.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Publish writes one event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", event.Type, event.OrderID, err)
	}

	p.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("order_id", event.OrderID).
		Msg("event published")

	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
