package db

import (
	"context"
	"database/sql"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id               CHAR(36)      NOT NULL PRIMARY KEY,
		filename         VARCHAR(512)  NOT NULL,
		storage_path     VARCHAR(1024) NOT NULL,
		status           VARCHAR(32)   NOT NULL,
		owner_id         CHAR(36)      NOT NULL,
		size_bytes       BIGINT        NOT NULL DEFAULT 0,
		error_message    TEXT          NULL,
		confidence_score FLOAT         NULL,
		processed_at     DATETIME(6)   NULL,
		created_at       DATETIME(6)   NOT NULL,
		updated_at       DATETIME(6)   NOT NULL,
		INDEX idx_documents_owner (owner_id, created_at),
		INDEX idx_documents_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id            CHAR(36)    NOT NULL PRIMARY KEY,
		document_id   CHAR(36)    NOT NULL,
		job_type      VARCHAR(64) NOT NULL,
		payload       JSON        NOT NULL,
		status        VARCHAR(32) NOT NULL,
		attempts      INT         NOT NULL DEFAULT 0,
		max_attempts  INT         NOT NULL,
		error_message TEXT        NULL,
		scheduled_for DATETIME(6) NOT NULL,
		started_at    DATETIME(6) NULL,
		completed_at  DATETIME(6) NULL,
		lease_until   DATETIME(6) NULL,
		created_at    DATETIME(6) NOT NULL,
		updated_at    DATETIME(6) NOT NULL,
		INDEX idx_jobs_claim (status, scheduled_for, created_at),
		INDEX idx_jobs_lease (status, lease_until),
		INDEX idx_jobs_document (document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS extracted_fields (
		id               CHAR(36)     NOT NULL PRIMARY KEY,
		document_id      CHAR(36)     NOT NULL,
		field_name       VARCHAR(255) NOT NULL,
		field_value      TEXT         NOT NULL,
		confidence_score FLOAT        NOT NULL,
		bounding_box     JSON         NOT NULL,
		created_at       DATETIME(6)  NOT NULL,
		INDEX idx_fields_document (document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_records (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		document_id CHAR(36)     NOT NULL,
		field_name  VARCHAR(255) NOT NULL,
		ai_value    TEXT         NOT NULL,
		human_value TEXT         NOT NULL,
		reviewer_id CHAR(36)     NOT NULL,
		created_at  DATETIME(6)  NOT NULL,
		INDEX idx_feedback_document (document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		version     INT          NOT NULL,
		prompt_text TEXT         NOT NULL,
		parameters  JSON         NULL,
		status      VARCHAR(32)  NOT NULL,
		created_at  DATETIME(6)  NOT NULL,
		updated_at  DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_prompt_name_version (name, version),
		INDEX idx_prompt_name_status (name, status)
	)`,
}

// Migrate creates the schema. Statements are idempotent so it is safe to
// run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
