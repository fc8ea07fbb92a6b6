package database

import (
	"context"
	"fmt"
)

// schemaStatements creates every table the pipeline reads or writes.
// Statements are idempotent. run_id is TEXT: ids come from --run-id as well as uuid.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS retail`,
	`CREATE SCHEMA IF NOT EXISTS forecast`,

	`CREATE TABLE IF NOT EXISTS retail.daily_sales (
		product_id      TEXT        NOT NULL,
		sale_date       DATE        NOT NULL,
		units_sold      DOUBLE PRECISION,
		on_hand         DOUBLE PRECISION,
		price           DOUBLE PRECISION,
		cost            DOUBLE PRECISION,
		reference_price DOUBLE PRECISION,
		margin          DOUBLE PRECISION,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (product_id, sale_date)
	)`,

	`CREATE TABLE IF NOT EXISTS forecast.runs (
		run_id       TEXT        PRIMARY KEY,
		config_hash  TEXT        NOT NULL,
		seed         BIGINT      NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		cutoff       DATE,
		train_rows   INTEGER     NOT NULL,
		test_rows    INTEGER     NOT NULL,
		report       JSONB       NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON forecast.runs (generated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS forecast.qualifications (
		run_id          TEXT        NOT NULL,
		product_id      TEXT        NOT NULL,
		as_of           DATE,
		age_days        INTEGER     NOT NULL,
		is_new          BOOLEAN     NOT NULL,
		should_forecast BOOLEAN     NOT NULL,
		reasons         TEXT[]      NOT NULL,
		outcomes        JSONB       NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_qualifications_product ON forecast.qualifications (product_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS forecast.model_scores (
		run_id  TEXT    NOT NULL,
		model   TEXT    NOT NULL,
		wmape   DOUBLE PRECISION,
		defined BOOLEAN NOT NULL,
		mae     DOUBLE PRECISION,
		rmse    DOUBLE PRECISION,
		bias    DOUBLE PRECISION,
		rows    INTEGER NOT NULL,
		rank    INTEGER NOT NULL,
		PRIMARY KEY (run_id, model)
	)`,
}

// EnsureSchema creates the retail and forecast tables if missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
