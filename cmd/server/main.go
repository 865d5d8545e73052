package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	assessmentHandler "haven/internal/assessment/handler"
	assessmentMetrics "haven/internal/assessment/metrics"
	assessmentService "haven/internal/assessment/service"
	assessmentStore "haven/internal/assessment/store"
	"haven/internal/auth"
	"haven/internal/auth/revocation"
	"haven/internal/isolation"
	isolationHandler "haven/internal/isolation/handler"
	isolationMetrics "haven/internal/isolation/metrics"
	"haven/internal/platform/config"
	"haven/internal/platform/httpserver"
	"haven/internal/platform/logger"
	"haven/internal/platform/metrics"
	redisplatform "haven/internal/platform/redis"
	"haven/internal/sla"
	slaMetrics "haven/internal/sla/metrics"
	"haven/internal/sla/store/streak"
	"haven/internal/storage"
	httptransport "haven/internal/transport/http"
	audit "haven/pkg/platform/audit"
	"haven/pkg/platform/audit/publishers/compliance"
	"haven/pkg/platform/audit/publishers/ops"
	"haven/pkg/platform/audit/publishers/security"
	auditmemory "haven/pkg/platform/audit/store/memory"
	auditpg "haven/pkg/platform/audit/store/postgres"
)

const (
	tokenIssuer   = "haven"
	tokenAudience = "haven-mobile"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Domain logic lives in the internal packages; everything here is
// construction order and shutdown order.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Infrastructure clients. Every one of them is optional: with nothing
	// configured the server runs on in-memory stores, which keeps the
	// crisis path deployable with zero external dependencies.
	rdb, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		pool *pgxpool.Pool
		db   *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres pool: %w", err)
		}
		defer pool.Close()

		// The audit store and outbox relay run on database/sql; the KV
		// store runs on pgx. Same database, two drivers.
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
	}

	// Clinical record storage: Postgres when configured, memory otherwise,
	// with the encrypting decorator layered on when a key is present.
	var kv storage.KV
	if pool != nil {
		kv = storage.NewPostgres(pool)
	} else {
		kv = storage.NewMemory()
	}
	if cfg.Storage.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Storage.EncryptionKey)
		if err != nil {
			return fmt.Errorf("decode storage key: %w", err)
		}
		kv, err = storage.NewEncrypted(kv, key)
		if err != nil {
			return fmt.Errorf("wrap storage encryption: %w", err)
		}
		log.Info("score storage encrypted at rest")
	}

	// Audit sink and the three publishers in front of it. Compliance writes
	// are synchronous and fail-closed; security and ops absorb their own
	// failures so they can never slow a request.
	var auditStore audit.Store
	var pgAudit *auditpg.Store
	if db != nil {
		pgAudit = auditpg.New(db)
		auditStore = pgAudit
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}

	compliancePub := compliance.New(auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)
	securityPub := security.New(auditStore,
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics()),
	)
	defer securityPub.Close()
	opsTracker := ops.New(auditStore,
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics()),
	)

	// Kafka materialization pipeline: outbox relay out, consumer group back
	// into the category tables. Only meaningful when the outbox exists, so
	// it requires Postgres too.
	if len(cfg.Kafka.Brokers) > 0 {
		if pgAudit == nil {
			log.Warn("kafka brokers configured without postgres; audit pipeline disabled")
		} else {
			pipeline, err := startAuditPipeline(ctx, cfg.Kafka.Brokers, db, pgAudit, log)
			if err != nil {
				return fmt.Errorf("start audit pipeline: %w", err)
			}
			defer pipeline.Stop()
		}
	}

	// Guarantee enforcer. The Redis streak store shares the consecutive
	// crisis-miss count across instances; without Redis the in-process
	// count still escalates.
	slaOpts := []sla.Option{
		sla.WithLogger(log),
		sla.WithMetrics(slaMetrics.New()),
		sla.WithOpsTracker(opsTracker),
		sla.WithCompliancePublisher(compliancePub),
		sla.WithFallbackRetry(cfg.SLA.FallbackRetry),
	}
	if rdb != nil {
		slaOpts = append(slaOpts, sla.WithStreakStore(streak.New(rdb.Client)))
	}
	enforcer := sla.New(slaOpts...)

	// Segregation guard. An invalid policy file aborts startup; running
	// with half a policy is worse than not running.
	var policy *isolation.Policy
	if cfg.Isolation.PolicyPath != "" {
		policy, err = isolation.FromFile(cfg.Isolation.PolicyPath)
		if err != nil {
			return fmt.Errorf("load isolation policy: %w", err)
		}
		log.Info("isolation policy loaded", "path", cfg.Isolation.PolicyPath)
	}
	guard, err := isolation.New(policy,
		isolation.WithLogger(log),
		isolation.WithMetrics(isolationMetrics.New()),
		isolation.WithCompliancePublisher(compliancePub),
		isolation.WithSecurityPublisher(securityPub),
		isolation.WithOpsTracker(opsTracker),
	)
	if err != nil {
		return fmt.Errorf("build isolation guard: %w", err)
	}

	// Assessment workflow. The crisis notifier and contact directory are
	// ports for the embedding application; the server runs without a
	// delivery channel and the crisis signal still persists and audits.
	assessments, err := assessmentService.New(assessmentStore.New(kv), enforcer,
		assessmentService.WithLogger(log),
		assessmentService.WithMetrics(assessmentMetrics.New()),
		assessmentService.WithIsolationGuard(guard),
		assessmentService.WithCompliancePublisher(compliancePub),
		assessmentService.WithOpsTracker(opsTracker),
	)
	if err != nil {
		return fmt.Errorf("build assessment service: %w", err)
	}

	// Session tokens and the revocation list behind them.
	if cfg.Server.JWTSigningKey == "dev-secret-key-change-in-production" {
		log.Warn("JWT signing key is the development default")
	}
	tokens := auth.NewTokenService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
	var revocations revocation.List
	if rdb != nil {
		revocations = revocation.NewRedisList(rdb.Client)
	} else {
		revocations = revocation.NewMemoryList()
	}

	if cfg.Server.AdminToken == "" {
		log.Warn("admin token unset; operator endpoints reject all requests")
	}

	router := httptransport.New(httptransport.Deps{
		Logger:       log,
		HTTPMetrics:  metrics.NewHTTP(),
		Assessments:  assessmentHandler.New(assessments, log),
		Isolation:    isolationHandler.New(guard, log),
		Operator:     httptransport.NewOperatorHandler(enforcer, tokens, revocations, securityPub, log),
		JWTValidator: auth.NewTokenServiceAdapter(tokens),
		Revocations:  revocations,
		AdminToken:   cfg.Server.AdminToken,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.Info("server started", "addr", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
