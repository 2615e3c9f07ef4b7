package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS processing_jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		session_id UUID NOT NULL,
		owner_id UUID NOT NULL,
		file_name TEXT NOT NULL,
		total_rows INTEGER NOT NULL DEFAULT 0,
		kept_rows INTEGER NOT NULL DEFAULT 0,
		dropped_distant INTEGER NOT NULL DEFAULT 0,
		plates_found INTEGER NOT NULL DEFAULT 0,
		parts INTEGER NOT NULL DEFAULT 0,
		missing_columns TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_owner_id ON processing_jobs (owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_session_id ON processing_jobs (session_id);`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_created_at ON processing_jobs (created_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
