// Package kafka forwards domain events to a Kafka topic as JSON envelopes.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
)

const envelopeVersion = 1

// Envelope wraps every event written to the topic. CorrelationID is the aggregate id, which is
// also the message key, so one order's events stay on one partition. RequestID names the inbound
// request that caused the event, when there was one.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes each event synchronously and returns once the brokers acknowledged it.
type Publisher struct {
	w        messageWriter
	producer string
}

func NewPublisher(brokers []string, topic, producer string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		producer: producer,
	}
}

// Handle makes the publisher usable as an outbox subscriber.
func (p *Publisher) Handle(ctx context.Context, e outbox.Event) error {
	return p.Publish(ctx, e)
}

func (p *Publisher) Publish(ctx context.Context, e outbox.Event) error {
	msg, err := p.message(ctx, e)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

func (p *Publisher) message(ctx context.Context, e outbox.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.EventName(),
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.producer,
		CorrelationID: e.AggregateID(),
		RequestID:     logctx.RequestID(ctx),
		Payload:       payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		env.TraceID = sc.TraceID().String()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.AggregateID()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}, nil
}
