// Package events exports supervisor lifecycle events to Kafka.
// Export is optional; a Noop emitter stands in when no brokers are configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types published by the supervisor.
const (
	TypeRunCompleted      = "run_completed"
	TypePatternDetected   = "pattern_detected"
	TypeInterventionFired = "intervention_fired"
)

// Event is one supervisor lifecycle event.
type Event struct {
	Type     string         `json:"type"`
	At       time.Time      `json:"at"`
	TenantID string         `json:"tenant_id,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Key returns the Kafka message key: member-scoped when possible so one
// member's events stay ordered within a partition.
func (e Event) Key() string {
	if e.TenantID != "" && e.UserID != "" {
		return e.TenantID + ":" + e.UserID
	}
	return e.Type
}

// Emitter publishes supervisor events.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
	Close() error
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(context.Context, Event) error { return nil }
func (Noop) Close() error                      { return nil }

// KafkaEmitter publishes events to a Kafka topic.
type KafkaEmitter struct {
	w *kafka.Writer
}

// NewKafkaEmitter creates an emitter for the given brokers (comma-separated)
// and topic.
func NewKafkaEmitter(brokers, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		w: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Emit publishes one event as a JSON message.
func (k *KafkaEmitter) Emit(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Time:  e.At,
	})
}

func (k *KafkaEmitter) Close() error {
	return k.w.Close()
}
