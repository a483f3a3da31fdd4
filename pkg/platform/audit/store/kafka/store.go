// Package kafka publishes audit events to a Kafka topic.
//
// The topic is the durable audit trail; the in-memory store only serves
// recent reads. When the broker is unreachable the circuit opens and events
// are handed to the fallback sink instead of failing the caller.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/circuit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Fallback receives events while the circuit is open.
type Fallback interface {
	Append(ctx context.Context, event audit.Event) error
}

// Store implements the audit sink on top of a Kafka producer.
type Store struct {
	producer Producer
	topic    string
	fallback Fallback
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithFallback(f Fallback) Option {
	return func(s *Store) { s.fallback = f }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Store) { s.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Kafka audit sink writing to topic.
func New(producer Producer, topic string, opts ...Option) *Store {
	s := &Store{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("kafka-audit"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// payload is the JSON structure published to Kafka. Field names match
// audit.Event so consumers can decode straight into it.
type payload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	Subject   string `json:"Subject,omitempty"`
	Action    string `json:"Action"`
	Component string `json:"Component,omitempty"`
	Resource  string `json:"Resource,omitempty"`
	LocalID   string `json:"LocalID,omitempty"`
	TeamName  string `json:"TeamName,omitempty"`
	Decision  string `json:"Decision,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	ClientIP  string `json:"ClientIP,omitempty"`
	Device    string `json:"Device,omitempty"`
}

// Encode builds the Kafka record for an event. Records are keyed by
// component so events for one component stay ordered within a partition.
func Encode(topic string, event audit.Event) (*kgo.Record, error) {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	body, err := json.Marshal(payload{
		ID:        uuid.NewString(),
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Component: event.Component,
		Resource:  event.Resource,
		LocalID:   event.LocalID,
		TeamName:  event.TeamName,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	key := event.Component
	if key == "" {
		key = event.Subject
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}, nil
}

// Append publishes the event synchronously.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	record, err := Encode(s.topic, event)
	if err != nil {
		return err
	}

	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.ErrorContext(ctx, "kafka audit circuit opened",
				"topic", s.topic,
				"error", err,
			)
		}
		if useFallback && s.fallback != nil {
			return s.fallback.Append(ctx, event)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "kafka audit circuit closed", "topic", s.topic)
	}
	return nil
}
