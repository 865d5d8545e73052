package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Producer publishes one record to a Kafka topic.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay moves pending outbox rows to Kafka. Rows are locked with
// FOR UPDATE SKIP LOCKED so multiple relay instances can run side by side
// without publishing the same event twice. A row is marked published only
// after the broker acknowledges the record; a crash between produce and
// commit redelivers, and the consumer's ON CONFLICT insert absorbs the
// duplicate.
type OutboxRelay struct {
	db        *sql.DB
	producer  Producer
	topicFor  func(category string) string
	logger    *slog.Logger
	metrics   *RelayMetrics
	interval  time.Duration
	batchSize int
}

// RelayOption configures an OutboxRelay.
type RelayOption func(*OutboxRelay)

// WithRelayLogger sets the logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *OutboxRelay) {
		r.logger = logger
	}
}

// WithRelayMetrics enables Prometheus instrumentation.
func WithRelayMetrics(m *RelayMetrics) RelayOption {
	return func(r *OutboxRelay) {
		r.metrics = m
	}
}

// WithPollInterval overrides how often the relay checks for pending rows.
func WithPollInterval(interval time.Duration) RelayOption {
	return func(r *OutboxRelay) {
		r.interval = interval
	}
}

// WithBatchSize overrides how many rows are claimed per pass.
func WithBatchSize(size int) RelayOption {
	return func(r *OutboxRelay) {
		r.batchSize = size
	}
}

// NewOutboxRelay creates a relay that publishes outbox rows via producer.
// topicFor maps an event category to its Kafka topic.
func NewOutboxRelay(db *sql.DB, producer Producer, topicFor func(category string) string, opts ...RelayOption) *OutboxRelay {
	r := &OutboxRelay{
		db:        db,
		producer:  producer,
		topicFor:  topicFor,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is cancelled. Each tick drains the outbox
// until a pass comes back short of a full batch.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.relayBatch(ctx)
				if err != nil {
					r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
					if r.metrics != nil {
						r.metrics.IncFailures()
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// outboxEnvelope is the slice of the payload the relay needs for routing.
type outboxEnvelope struct {
	ID       string `json:"ID"`
	Category string `json:"Category"`
}

// relayBatch claims up to batchSize pending rows, produces them, and marks
// the acknowledged ones published. Returns how many rows were claimed.
func (r *OutboxRelay) relayBatch(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	rows, err := tx.QueryContext(ctx, `
		SELECT id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	type pending struct {
		rowID   string
		payload []byte
	}
	var claimed []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.rowID, &p.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	rows.Close()

	if len(claimed) == 0 {
		return 0, tx.Commit()
	}

	published := make([]string, 0, len(claimed))
	var produceErr error
	for _, p := range claimed {
		var env outboxEnvelope
		if err := json.Unmarshal(p.payload, &env); err != nil {
			// A row that cannot be routed will never succeed; mark it
			// published so it stops blocking the queue.
			r.logger.ErrorContext(ctx, "dropping malformed outbox payload",
				"outbox_id", p.rowID,
				"error", err,
			)
			published = append(published, p.rowID)
			continue
		}

		key := env.ID
		if key == "" {
			key = p.rowID
		}

		if err := r.producer.Produce(ctx, r.topicFor(env.Category), []byte(key), p.payload); err != nil {
			// Stop the pass; unpublished rows stay pending for the next tick.
			produceErr = fmt.Errorf("produce outbox event %s: %w", env.ID, err)
			break
		}
		published = append(published, p.rowID)
	}

	if len(published) > 0 {
		_, err := tx.ExecContext(ctx, `
			UPDATE outbox
			SET published_at = $2
			WHERE id = ANY($1::uuid[])
		`, pq.Array(published), time.Now())
		if err != nil {
			return len(claimed), fmt.Errorf("mark outbox published: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return len(claimed), fmt.Errorf("commit outbox tx: %w", err)
	}

	if r.metrics != nil {
		r.metrics.AddRelayed(len(published))
	}
	return len(claimed), produceErr
}
