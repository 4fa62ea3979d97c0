package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes rejection events to a Kafka topic for durable security
// monitoring. Records are produced asynchronously and keyed by rejection
// code, so one code's burst stays ordered within its partition. Delivery
// failures are logged and dropped: the pipeline never blocks or fails a
// parse on audit backpressure.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	codec  Codec
	logger *slog.Logger
}

// KafkaOption customizes a KafkaSink.
type KafkaOption func(*KafkaSink)

// WithCodec sets the record value encoding. Default is JSONCodec.
func WithCodec(c Codec) KafkaOption {
	return func(s *KafkaSink) { s.codec = c }
}

// WithKafkaLogger sets the logger for delivery failures. Default is silent.
func WithKafkaLogger(l *slog.Logger) KafkaOption {
	return func(s *KafkaSink) { s.logger = l }
}

// NewKafkaSink creates a sink producing to topic via the given brokers. The
// client connects lazily on first produce.
func NewKafkaSink(brokers []string, topic string, opts ...KafkaOption) (*KafkaSink, error) {
	if topic == "" {
		return nil, fmt.Errorf("audit: kafka topic must not be empty")
	}
	s := &KafkaSink{topic: topic, codec: JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: kafka client: %w", err)
	}
	s.client = client
	return s, nil
}

// Rejected implements Sink.
func (s *KafkaSink) Rejected(ctx context.Context, ev Event) {
	value, err := s.codec.Encode(ev)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("audit event encode failed", "error", err, "event_id", ev.ID)
		}
		return
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(ev.Code),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && s.logger != nil {
			s.logger.Warn("audit event delivery failed", "error", err, "event_id", ev.ID)
		}
	})
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	defer s.client.Close()
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("audit: kafka flush: %w", err)
	}
	return nil
}
