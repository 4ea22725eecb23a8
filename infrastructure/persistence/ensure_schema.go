package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS oauth_connections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		instance_url TEXT,
		last_error TEXT,
		connected_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS oauth_tokens (
		connection_id TEXT PRIMARY KEY REFERENCES oauth_connections(id) ON DELETE CASCADE,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		token_type TEXT,
		scopes TEXT,
		expires_at TIMESTAMPTZ,
		account_handle TEXT NOT NULL DEFAULT '',
		display_name TEXT,
		profile_image_url TEXT,
		platform_account_id TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS social_posts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		media_refs JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ,
		platforms TEXT[] NOT NULL,
		failure_reason TEXT,
		published_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS social_posts_due_idx ON social_posts (scheduled_at) WHERE status = 'scheduled'`,
	`CREATE TABLE IF NOT EXISTS publish_jobs (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES social_posts(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		target_platforms TEXT[] NOT NULL,
		pending_platforms TEXT[] NOT NULL,
		dead_platforms TEXT[] NOT NULL DEFAULT '{}',
		attempts_made INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL,
		next_run_at TIMESTAMPTZ NOT NULL,
		state TEXT NOT NULL,
		lease_owner TEXT,
		lease_expires_at TIMESTAMPTZ,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS publish_jobs_active_post_idx ON publish_jobs (post_id) WHERE state IN ('pending','ready','in_flight')`,
	`CREATE INDEX IF NOT EXISTS publish_jobs_ready_idx ON publish_jobs (next_run_at) WHERE state = 'ready'`,
	`CREATE TABLE IF NOT EXISTS publish_results (
		id BIGSERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES publish_jobs(id) ON DELETE CASCADE,
		post_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		attempt INT NOT NULL,
		success BOOLEAN NOT NULL,
		external_post_id TEXT,
		error_code TEXT,
		error_message TEXT,
		retryable BOOLEAN NOT NULL DEFAULT FALSE,
		attempted_at TIMESTAMPTZ NOT NULL,
		UNIQUE (job_id, attempt, platform)
	)`,
	`CREATE INDEX IF NOT EXISTS publish_results_post_idx ON publish_results (post_id, platform, attempted_at DESC)`,
	`CREATE TABLE IF NOT EXISTS publish_runs (
		id BIGSERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES publish_jobs(id) ON DELETE CASCADE,
		post_id TEXT NOT NULL,
		attempt INT NOT NULL,
		overall_success BOOLEAN NOT NULL,
		success_count INT NOT NULL,
		failure_count INT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		UNIQUE (job_id, attempt)
	)`,
}

// Columns added after the first release. Each is applied only when missing.
var columnChecks = []struct {
	table  string
	column string
	ddl    string
}{
	{"oauth_connections", "instance_url", "ALTER TABLE oauth_connections ADD COLUMN instance_url TEXT"},
	{"publish_jobs", "dead_platforms", "ALTER TABLE publish_jobs ADD COLUMN dead_platforms TEXT[] NOT NULL DEFAULT '{}'"},
}

// EnsureSchema creates the tables and indexes when missing. Safe to call at
// every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	for _, c := range columnChecks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
