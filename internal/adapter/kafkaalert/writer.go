// Package kafkaalert publishes safety verdict transitions to a Kafka
// topic for downstream alerting (SMS fan-out, operator dashboards).
package kafkaalert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Writer produces verdict messages to the alert topic.
// It implements verdict.AlertSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one verdict keyed by entity identity, so per-entity
// ordering is preserved across partitions.
func (w *Writer) Publish(ctx context.Context, v domain.SafetyVerdict) error {
	msg, err := serializeToMessage(v)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SafetyVerdict into a Kafka message.
func serializeToMessage(v domain.SafetyVerdict) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize safety verdict: %w", err)
	}
	safe := "safe"
	if !v.Safe {
		safe = "unsafe"
	}
	return kafkago.Message{
		Key:   []byte(v.EntityID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "verdict", Value: []byte(safe)},
			{Key: "published_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}
