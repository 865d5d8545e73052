// Package kafka wraps the franz-go client for audit event transport.
//
// Kafka is the durable spine of the audit pipeline: the outbox relay produces
// category-partitioned events, and the consumer materializes them into the
// queryable audit tables. Nothing on a request path talks to Kafka directly.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Config holds connection and topic settings.
type Config struct {
	Brokers []string

	// Topic per audit category. The relay routes by the event's category;
	// the consumer subscribes to all three.
	ComplianceTopic string
	SecurityTopic   string
	OpsTopic        string

	// ConsumerGroup names the materializer's group.
	ConsumerGroup string
}

// DefaultTopics fills empty topic names with the standard ones.
func (c *Config) DefaultTopics() {
	if c.ComplianceTopic == "" {
		c.ComplianceTopic = "haven.audit.compliance"
	}
	if c.SecurityTopic == "" {
		c.SecurityTopic = "haven.audit.security"
	}
	if c.OpsTopic == "" {
		c.OpsTopic = "haven.audit.ops"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "haven-audit-materializer"
	}
}

// TopicFor maps an audit category name to its topic. Unknown categories land
// on the ops topic, which has the shortest retention.
func (c Config) TopicFor(category string) string {
	switch category {
	case "compliance":
		return c.ComplianceTopic
	case "security":
		return c.SecurityTopic
	default:
		return c.OpsTopic
	}
}

// Producer is a thin synchronous producer over one kgo.Client.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects a producing client. Acks from all in-sync replicas are
// required; audit events must not be lost to a broker failover.
func NewProducer(cfg Config) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client}, nil
}

// Produce synchronously publishes one record and waits for acknowledgement.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
