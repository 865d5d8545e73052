//go:build integration

package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	kafkaplatform "haven/internal/platform/kafka"
	kafkaconsumer "haven/internal/platform/kafka/consumer"
	id "haven/pkg/domain"
	audit "haven/pkg/platform/audit"
	auditconsumer "haven/pkg/platform/audit/consumer"
	auditpg "haven/pkg/platform/audit/store/postgres"
	"haven/pkg/platform/audit/worker"
	"haven/pkg/testutil/containers"
)

// storeAdapter satisfies the consumer store interfaces with the postgres
// store; the repos deliberately keep separate record types so the consumer
// stays storage-agnostic.
type storeAdapter struct {
	store *auditpg.Store
}

func (a storeAdapter) AppendCompliance(ctx context.Context, eventID uuid.UUID, record auditconsumer.ComplianceRecord) error {
	return a.store.AppendCompliance(ctx, eventID, auditpg.ComplianceRecord(record))
}

func (a storeAdapter) AppendSecurity(ctx context.Context, eventID uuid.UUID, record auditconsumer.SecurityRecord) error {
	return a.store.AppendSecurity(ctx, eventID, auditpg.SecurityRecord(record))
}

func (a storeAdapter) AppendOps(ctx context.Context, eventID uuid.UUID, record auditconsumer.OpsRecord) error {
	return a.store.AppendOps(ctx, eventID, auditpg.OpsRecord(record))
}

// PipelineSuite exercises the full audit path: outbox insert, relay to the
// broker, consumer group fetch, and idempotent materialization into the
// category tables.
type PipelineSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	cfg      kafkaplatform.Config
	store    *auditpg.Store
	logger   *slog.Logger
}

func TestPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = auditpg.New(s.postgres.DB)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	// Unique topics and group per run: the broker is shared across suites.
	runID := uuid.NewString()[:8]
	s.cfg = kafkaplatform.Config{
		Brokers:         s.redpanda.Brokers,
		ComplianceTopic: "haven.audit.compliance." + runID,
		SecurityTopic:   "haven.audit.security." + runID,
		OpsTopic:        "haven.audit.ops." + runID,
		ConsumerGroup:   "haven-audit-materializer-" + runID,
	}

	err := kafkaplatform.EnsureTopics(context.Background(), s.cfg)
	s.Require().NoError(err)
}

func (s *PipelineSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"outbox", "audit_compliance", "audit_security", "audit_ops")
	s.Require().NoError(err)
}

func (s *PipelineSuite) TestEventsMaterializeByCategory() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	// One event per category, written through the outbox store.
	events := []audit.Event{
		{
			UserID:     userID,
			Subject:    "assessment-1",
			Action:     "crisis_detected",
			Instrument: "phq9",
			Decision:   "triggered",
			Reason:     "suicidal_ideation_item",
			Severity:   "severe",
			RequestID:  "req-pipeline",
			Timestamp:  time.Now(),
		},
		{
			UserID:    userID,
			Subject:   "session-1",
			Action:    "auth_failed",
			Reason:    "invalid_token",
			Severity:  "warning",
			IP:        "10.0.0.7",
			Timestamp: time.Now(),
		},
		{
			UserID:    userID,
			Subject:   "assessment-1",
			Action:    "guarantee_met",
			Decision:  "met",
			Timestamp: time.Now(),
		},
	}
	for _, event := range events {
		s.Require().NoError(s.store.Append(ctx, event))
	}

	// Relay the outbox to the broker.
	producer, err := kafkaplatform.NewProducer(s.cfg)
	s.Require().NoError(err)
	defer producer.Close()

	relay := worker.NewOutboxRelay(s.postgres.DB, producer, s.cfg.TopicFor,
		worker.WithPollInterval(50*time.Millisecond),
		worker.WithRelayLogger(s.logger),
	)
	relayCtx, cancelRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(relayCtx)
	}()

	// Consume and materialize.
	adapter := storeAdapter{store: s.store}
	router := auditconsumer.NewRouter(s.logger, nil)
	router.Register(s.cfg.ComplianceTopic, auditconsumer.NewComplianceHandler(adapter, s.logger))
	router.Register(s.cfg.SecurityTopic, auditconsumer.NewSecurityHandler(adapter, s.logger))
	router.Register(s.cfg.OpsTopic, auditconsumer.NewOpsHandler(adapter, s.logger))

	consumer, err := kafkaconsumer.New(
		s.cfg.Brokers,
		s.cfg.ConsumerGroup,
		[]string{s.cfg.ComplianceTopic, s.cfg.SecurityTopic, s.cfg.OpsTopic},
		router,
		kafkaconsumer.WithLogger(s.logger),
	)
	s.Require().NoError(err)

	consumeCtx, cancelConsume := context.WithCancel(ctx)
	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		_ = consumer.Run(consumeCtx)
	}()

	tableCount := func(table string) int {
		var n int
		err := s.postgres.DB.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n)
		s.Require().NoError(err)
		return n
	}

	s.Eventually(func() bool {
		return tableCount("audit_compliance") == 1 &&
			tableCount("audit_security") == 1 &&
			tableCount("audit_ops") == 1
	}, 30*time.Second, 100*time.Millisecond, "all three categories should materialize")

	cancelRelay()
	<-relayDone
	cancelConsume()
	consumer.Close()
	<-consumeDone

	// Spot-check the compliance row carries the clinical outcome labels.
	var action, reason, severity string
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT action, reason, severity FROM audit_compliance WHERE user_id = $1`,
		uuid.UUID(userID)).Scan(&action, &reason, &severity)
	s.Require().NoError(err)
	s.Equal("crisis_detected", action)
	s.Equal("suicidal_ideation_item", reason)
	s.Equal("severe", severity)
}

func (s *PipelineSuite) TestRedeliveryIsIdempotent() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	event := audit.Event{
		UserID:    userID,
		Subject:   "assessment-2",
		Action:    "crisis_detected",
		Decision:  "triggered",
		Reason:    "score_threshold",
		Severity:  "severe",
		Timestamp: time.Now(),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	// Read the event ID assigned by the outbox write.
	var payload []byte
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT payload FROM outbox ORDER BY created_at DESC LIMIT 1`).Scan(&payload)
	s.Require().NoError(err)

	producer, err := kafkaplatform.NewProducer(s.cfg)
	s.Require().NoError(err)
	defer producer.Close()

	relay := worker.NewOutboxRelay(s.postgres.DB, producer, s.cfg.TopicFor,
		worker.WithPollInterval(50*time.Millisecond),
		worker.WithRelayLogger(s.logger),
	)
	relayCtx, cancelRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(relayCtx)
	}()
	defer func() {
		cancelRelay()
		<-relayDone
	}()

	adapter := storeAdapter{store: s.store}
	handler := auditconsumer.NewComplianceHandler(adapter, s.logger)

	// Materialize the same message twice, as a rebalance would.
	var eventID string
	s.Eventually(func() bool {
		var n int
		err := s.postgres.DB.QueryRowContext(ctx,
			`SELECT count(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&n)
		s.Require().NoError(err)
		return n == 1
	}, 10*time.Second, 50*time.Millisecond)

	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT payload->>'ID' FROM outbox LIMIT 1`).Scan(&eventID)
	s.Require().NoError(err)

	msg := &kafkaconsumer.Message{
		Topic: s.cfg.ComplianceTopic,
		Key:   []byte(eventID),
		Value: payload,
	}
	s.Require().NoError(handler.Handle(ctx, msg))
	s.Require().NoError(handler.Handle(ctx, msg), "duplicate delivery must not error")

	var n int
	err = s.postgres.DB.QueryRowContext(ctx, `SELECT count(*) FROM audit_compliance`).Scan(&n)
	s.Require().NoError(err)
	s.Equal(1, n, "ON CONFLICT DO NOTHING absorbs the duplicate")
}
