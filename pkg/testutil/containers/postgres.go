//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full test schema. Production deployments manage DDL
// externally; integration tests create it fresh in the container.
const schema = `
CREATE TABLE IF NOT EXISTS outbox (
    id             uuid PRIMARY KEY,
    aggregate_type text        NOT NULL,
    aggregate_id   text        NOT NULL,
    event_type     text        NOT NULL,
    payload        jsonb       NOT NULL,
    created_at     timestamptz NOT NULL,
    published_at   timestamptz
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending
    ON outbox (created_at) WHERE published_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_events (
    id                 uuid PRIMARY KEY,
    category           text        NOT NULL,
    timestamp          timestamptz NOT NULL,
    user_id            uuid,
    subject            text        NOT NULL DEFAULT '',
    action             text        NOT NULL,
    instrument         text        NOT NULL DEFAULT '',
    access_context     text        NOT NULL DEFAULT '',
    decision           text        NOT NULL DEFAULT '',
    reason             text        NOT NULL DEFAULT '',
    severity           text        NOT NULL DEFAULT '',
    ip                 text        NOT NULL DEFAULT '',
    request_id         text        NOT NULL DEFAULT '',
    actor_id           text        NOT NULL DEFAULT '',
    device_fingerprint text        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_user
    ON audit_events (user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS audit_compliance (
    id             uuid PRIMARY KEY,
    timestamp      timestamptz NOT NULL,
    user_id        uuid        NOT NULL,
    subject        text        NOT NULL DEFAULT '',
    action         text        NOT NULL,
    instrument     text        NOT NULL DEFAULT '',
    access_context text        NOT NULL DEFAULT '',
    decision       text        NOT NULL DEFAULT '',
    reason         text        NOT NULL DEFAULT '',
    severity       text        NOT NULL DEFAULT '',
    request_id     text        NOT NULL DEFAULT '',
    actor_id       text        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_security (
    id                 uuid PRIMARY KEY,
    timestamp          timestamptz NOT NULL,
    subject            text        NOT NULL DEFAULT '',
    action             text        NOT NULL,
    reason             text        NOT NULL DEFAULT '',
    ip                 text        NOT NULL DEFAULT '',
    request_id         text        NOT NULL DEFAULT '',
    actor_id           text        NOT NULL DEFAULT '',
    device_fingerprint text        NOT NULL DEFAULT '',
    severity           text        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_ops (
    id         uuid        NOT NULL,
    timestamp  timestamptz NOT NULL,
    subject    text        NOT NULL DEFAULT '',
    action     text        NOT NULL,
    decision   text        NOT NULL DEFAULT '',
    request_id text        NOT NULL DEFAULT '',
    PRIMARY KEY (id, timestamp)
);

CREATE TABLE IF NOT EXISTS kv_entries (
    k          text PRIMARY KEY,
    v          bytea       NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("haven_test"),
		tcpostgres.WithUsername("haven"),
		tcpostgres.WithPassword("haven"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// No t.Cleanup: the container is shared via the Manager singleton and
	// reaped by Ryuk on process exit.

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Exec runs a statement against the container database.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := p.DB.ExecContext(ctx, query, args...)
	return err
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	return err
}
