package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"broker-backoffice/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an already opened handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// schemaStatements creates the tables the back-office owns. Every statement
// is idempotent so it runs on each start.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS leads (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name            TEXT NOT NULL,
		product         TEXT NOT NULL DEFAULT 'general',
		product_detail  TEXT NOT NULL DEFAULT '',
		estimated_value TEXT NOT NULL DEFAULT 'A calcular',
		status          TEXT NOT NULL DEFAULT 'new',
		contact_email   TEXT NOT NULL DEFAULT '',
		contact_phone   TEXT NOT NULL DEFAULT '',
		message         TEXT NOT NULL DEFAULT '',
		origin          TEXT NOT NULL DEFAULT 'manual',
		proposal_value  TEXT,
		proposal_file   TEXT,
		proposal_date   TEXT,
		attachments     TEXT[] NOT NULL DEFAULT '{}',
		page_url        TEXT NOT NULL DEFAULT '',
		content_name    TEXT NOT NULL DEFAULT '',
		external_id     TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS leads_external_id_idx ON leads (external_id) WHERE external_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS leads_created_at_idx ON leads (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS mail_queue (
		id         UUID PRIMARY KEY,
		recipient  TEXT NOT NULL,
		subject    TEXT NOT NULL,
		body       TEXT NOT NULL,
		kind       TEXT NOT NULL,
		lead_id    TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL DEFAULT 'pending',
		error      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS mail_queue_status_idx ON mail_queue (status, created_at)`,
}

// EnsureSchema creates missing tables and indexes.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
