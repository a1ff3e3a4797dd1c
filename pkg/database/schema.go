package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY,
		reporter_id TEXT NOT NULL,
		reporter_role TEXT NOT NULL CHECK (reporter_role IN ('teacher', 'hod', 'principal')),
		department_id TEXT NULL,
		title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
		content TEXT NULL,
		chart_data JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'submitted_to_hod', 'submitted_to_principal', 'approved')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_reporter ON reports (reporter_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_department_status ON reports (department_id, status)`,
	`CREATE TABLE IF NOT EXISTS report_jobs (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		params JSONB NOT NULL DEFAULT '{}'::jsonb,
		status TEXT NOT NULL,
		progress INT NOT NULL DEFAULT 0,
		result_url TEXT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMPTZ NULL,
		error_message TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_report_jobs_status ON report_jobs (status, created_at)`,
}

// EnsureSchema creates the portal tables when missing. Statements are idempotent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
