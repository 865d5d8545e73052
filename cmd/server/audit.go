package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	kafkaplatform "haven/internal/platform/kafka"
	kafkaconsumer "haven/internal/platform/kafka/consumer"
	auditconsumer "haven/pkg/platform/audit/consumer"
	auditpg "haven/pkg/platform/audit/store/postgres"
	"haven/pkg/platform/audit/worker"
)

// storeAdapter satisfies the consumer store interfaces with the postgres
// store; the consumer keeps its own record types so it stays
// storage-agnostic.
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

// auditPipeline owns the background halves of the audit path: the outbox
// relay publishing to Kafka and the consumer group materializing events
// into the category tables.
type auditPipeline struct {
	producer *kafkaplatform.Producer
	consumer *kafkaconsumer.Consumer
	cancel   context.CancelFunc

	relayDone   chan struct{}
	consumeDone chan struct{}
}

// startAuditPipeline bootstraps topics, then starts the relay and consumer.
// Unpublished outbox rows survive a stop and are relayed on the next start,
// so stopping mid-stream loses nothing.
func startAuditPipeline(ctx context.Context, brokers []string, db *sql.DB, store *auditpg.Store, log *slog.Logger) (*auditPipeline, error) {
	cfg := kafkaplatform.Config{Brokers: brokers}
	cfg.DefaultTopics()

	if err := kafkaplatform.EnsureTopics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("ensure topics: %w", err)
	}

	producer, err := kafkaplatform.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	adapter := storeAdapter{store: store}
	router := auditconsumer.NewRouter(log, nil)
	router.Register(cfg.ComplianceTopic, auditconsumer.NewComplianceHandler(adapter, log))
	router.Register(cfg.SecurityTopic, auditconsumer.NewSecurityHandler(adapter, log))
	router.Register(cfg.OpsTopic, auditconsumer.NewOpsHandler(adapter, log))

	consumer, err := kafkaconsumer.New(
		cfg.Brokers,
		cfg.ConsumerGroup,
		[]string{cfg.ComplianceTopic, cfg.SecurityTopic, cfg.OpsTopic},
		router,
		kafkaconsumer.WithLogger(log),
	)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := &auditPipeline{
		producer:    producer,
		consumer:    consumer,
		cancel:      cancel,
		relayDone:   make(chan struct{}),
		consumeDone: make(chan struct{}),
	}

	relay := worker.NewOutboxRelay(db, producer, cfg.TopicFor,
		worker.WithRelayLogger(log),
		worker.WithRelayMetrics(worker.NewRelayMetrics()),
	)
	go func() {
		defer close(p.relayDone)
		if err := relay.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("outbox relay stopped", "error", err)
		}
	}()
	go func() {
		defer close(p.consumeDone)
		if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit consumer stopped", "error", err)
		}
	}()

	log.Info("audit pipeline started",
		"brokers", cfg.Brokers,
		"consumer_group", cfg.ConsumerGroup,
	)
	return p, nil
}

// Stop halts the relay and consumer, then releases the Kafka clients.
func (p *auditPipeline) Stop() {
	p.cancel()
	<-p.relayDone
	<-p.consumeDone
	p.consumer.Close()
	p.producer.Close()
}
