package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink forwards events to a Kafka topic. It is best effort: with no
// brokers configured every call is a no-op, and write failures are logged.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaSink builds a sink for topic on brokers.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return &KafkaSink{logger: logger}
	}
	return &KafkaSink{
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled reports whether events leave the process.
func (s *KafkaSink) Enabled() bool {
	return s != nil && s.writer != nil
}

// Handle implements EventHandler. Messages are keyed by ticket id so one
// ticket's events stay ordered within a partition.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.TicketID), Value: body}); err != nil {
		s.logger.Warn("kafka: write ticket event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.writer.Close()
}
