package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit events to a Kafka topic, keyed by actor hash so
// one actor's trail stays ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// KafkaConfig holds the minimal producer settings for the audit sink.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// NewKafkaSink creates a producer-only client for audit publishing.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka audit topic not configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka audit producer: %w", err)
	}
	return &KafkaSink{client: client, topic: cfg.Topic}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ActorHash),
		Value: value,
	}
	results := s.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
