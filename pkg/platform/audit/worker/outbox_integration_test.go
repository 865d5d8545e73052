//go:build integration

package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "haven/pkg/domain"
	audit "haven/pkg/platform/audit"
	auditpg "haven/pkg/platform/audit/store/postgres"
	"haven/pkg/platform/audit/worker"
	"haven/pkg/testutil/containers"
)

type fakeProducer struct {
	mu       sync.Mutex
	produced map[string][][]byte // topic -> payloads
	err      error
}

func (p *fakeProducer) Produce(_ context.Context, topic string, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.produced == nil {
		p.produced = make(map[string][][]byte)
	}
	p.produced[topic] = append(p.produced[topic], value)
	return nil
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, payloads := range p.produced {
		n += len(payloads)
	}
	return n
}

func (p *fakeProducer) topicCount(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.produced[topic])
}

func (p *fakeProducer) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func testTopicFor(category string) string {
	switch category {
	case "compliance":
		return "haven.audit.compliance"
	case "security":
		return "haven.audit.security"
	default:
		return "haven.audit.ops"
	}
}

type OutboxRelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestOutboxRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxRelaySuite))
}

func (s *OutboxRelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
}

func (s *OutboxRelaySuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "outbox")
	s.Require().NoError(err)
}

func (s *OutboxRelaySuite) pendingCount() int {
	var n int
	err := s.postgres.DB.QueryRowContext(context.Background(),
		`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	s.Require().NoError(err)
	return n
}

func (s *OutboxRelaySuite) runRelay(relay *worker.OutboxRelay, until func() bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	s.Eventually(until, 5*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}

// TestRelaysByCategory verifies pending rows are produced to the topic
// matching their event category and marked published.
func (s *OutboxRelaySuite) TestRelaysByCategory() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	events := []audit.Event{
		{UserID: userID, Action: "crisis_detected", Timestamp: time.Now()},   // compliance
		{UserID: userID, Action: "auth_failed", Timestamp: time.Now()},       // security
		{UserID: userID, Action: "guarantee_met", Timestamp: time.Now()},     // operations
		{UserID: userID, Action: "fallback_engaged", Timestamp: time.Now()},  // operations
	}
	for _, event := range events {
		s.Require().NoError(s.store.Append(ctx, event))
	}
	s.Equal(len(events), s.pendingCount())

	producer := &fakeProducer{}
	relay := worker.NewOutboxRelay(s.postgres.DB, producer, testTopicFor,
		worker.WithPollInterval(20*time.Millisecond),
		worker.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	s.runRelay(relay, func() bool { return producer.count() == len(events) })

	s.Equal(1, producer.topicCount("haven.audit.compliance"))
	s.Equal(1, producer.topicCount("haven.audit.security"))
	s.Equal(2, producer.topicCount("haven.audit.ops"))
	s.Equal(0, s.pendingCount(), "all rows should be marked published")
}

// TestBrokerOutageKeepsRowsPending verifies rows stay pending while the
// producer fails and drain once it recovers.
func (s *OutboxRelaySuite) TestBrokerOutageKeepsRowsPending() {
	ctx := context.Background()

	event := audit.Event{
		UserID:    id.UserID(uuid.New()),
		Action:    "crisis_detected",
		Timestamp: time.Now(),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	producer := &fakeProducer{}
	producer.setErr(errors.New("broker unreachable"))
	relay := worker.NewOutboxRelay(s.postgres.DB, producer, testTopicFor,
		worker.WithPollInterval(20*time.Millisecond),
		worker.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctxRun, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctxRun)
	}()

	// Give the relay a few passes against the failing broker.
	time.Sleep(150 * time.Millisecond)
	s.Equal(1, s.pendingCount(), "row must stay pending while the broker is down")

	producer.setErr(nil)
	s.Eventually(func() bool { return s.pendingCount() == 0 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	<-done

	s.Equal(1, producer.topicCount("haven.audit.compliance"))
}

// TestMalformedPayloadIsDropped verifies an unroutable row is marked
// published instead of wedging the queue.
func (s *OutboxRelaySuite) TestMalformedPayloadIsDropped() {
	ctx := context.Background()

	err := s.postgres.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'audit', $2, 'broken', '"not an object"'::jsonb, now())
	`, uuid.New(), uuid.NewString())
	s.Require().NoError(err)

	producer := &fakeProducer{}
	relay := worker.NewOutboxRelay(s.postgres.DB, producer, testTopicFor,
		worker.WithPollInterval(20*time.Millisecond),
		worker.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	s.runRelay(relay, func() bool { return s.pendingCount() == 0 })

	s.Equal(0, producer.count(), "malformed rows are dropped, not produced")
}
