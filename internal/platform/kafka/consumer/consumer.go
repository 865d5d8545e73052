// Package consumer provides a Kafka consumer group client for the audit
// materialization pipeline. It polls records, dispatches them to a handler,
// and commits offsets only after the handler accepts the batch, so audit
// events are delivered at least once.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a single record fetched from Kafka.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler processes a fetched message. Returning an error marks the message
// as retryable; returning nil commits it.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer polls a consumer group and feeds records to a Handler.
type Consumer struct {
	client      *kgo.Client
	handler     Handler
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the logger used for fetch and dispatch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithRetry overrides how many times a failing message is retried before it
// is dropped, and the delay between attempts.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *Consumer) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// New creates a consumer group client subscribed to the given topics.
// Offsets are committed manually after each handled batch.
func New(brokers []string, group string, topics []string, handler Handler, opts ...Option) (*Consumer, error) {
	c := &Consumer{
		handler:     handler,
		logger:      slog.Default(),
		maxAttempts: 5,
		backoff:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	c.client = client
	return c, nil
}

// Run polls until the context is cancelled or the client is closed.
// It blocks; call it from a dedicated goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			msg := &Message{
				Topic:     rec.Topic,
				Partition: rec.Partition,
				Offset:    rec.Offset,
				Key:       rec.Key,
				Value:     rec.Value,
			}
			if err := c.dispatch(ctx, msg); err != nil {
				// The offset is still committed: a poisoned record must not
				// wedge its partition. The handler has already logged it.
				c.logger.Error("dropping message after retries",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
			handled = append(handled, rec)
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil {
				c.logger.Error("kafka commit failed",
					"records", len(handled),
					"error", err,
				)
			}
		}
	}
}

// dispatch invokes the handler, retrying transient failures with a fixed
// backoff so a brief store outage does not drop audit events.
func (c *Consumer) dispatch(ctx context.Context, msg *Message) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
		}
	}
	return err
}

// Close shuts down the Kafka client. Any in-flight poll returns promptly.
func (c *Consumer) Close() {
	c.client.Close()
}
