// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db execer, dialect Dialect) error {
	statements := postgresSchema
	if dialect == SQLite {
		statements = sqliteSchema
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

var postgresSchema = []string{
	// Raw launch documents, exactly as returned by the API
	`CREATE TABLE IF NOT EXISTS raw_launches (
    id TEXT PRIMARY KEY,
    launch_data JSONB NOT NULL,
    ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	// Single aggregate row, recomputed after every run
	`CREATE TABLE IF NOT EXISTS launch_aggregates (
    id INT PRIMARY KEY,
    total_launches BIGINT NOT NULL DEFAULT 0,
    successful_launches BIGINT NOT NULL DEFAULT 0,
    average_payload_mass_kg DOUBLE PRECISION,
    last_updated_utc TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS raw_launches (
    id TEXT PRIMARY KEY,
    launch_data TEXT NOT NULL CHECK (json_valid(launch_data)),
    ingested_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS launch_aggregates (
    id INTEGER PRIMARY KEY,
    total_launches INTEGER NOT NULL DEFAULT 0,
    successful_launches INTEGER NOT NULL DEFAULT 0,
    average_payload_mass_kg REAL,
    last_updated_utc TEXT NOT NULL
)`,
}
