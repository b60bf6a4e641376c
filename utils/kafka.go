package utils

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes outbox events to a single topic.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// KafkaConfig names the brokers and topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaProducer creates a synchronous producer that waits for all replicas.
func NewKafkaProducer(cfg KafkaConfig) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, topic: cfg.Topic}
}

// Close flushes and closes the writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Send writes one message. eventType travels as a header so consumers can route without decoding.
func (p *KafkaProducer) Send(ctx context.Context, key string, value []byte, eventType string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	})
}

// MakeKeyFromID renders an id as a message key.
func MakeKeyFromID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
