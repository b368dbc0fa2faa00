// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db owns the launch store: schema creation, the watermark query, raw
launch writes and the aggregate recomputation.

# Opening a Store

	dialect, _ := db.ParseDialect(cfg.DatabaseType)
	conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
	store := db.NewStore(conn, dialect, logger)
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}

Two dialects are supported:

  - postgres: github.com/lib/pq, JSONB documents, TIMESTAMPTZ columns
  - sqlite: modernc.org/sqlite, JSON stored as TEXT, RFC 3339 timestamps

CreateSchema is safe to call multiple times - uses IF NOT EXISTS.

# Tables

  - raw_launches: id (PK), launch_data (full API document), ingested_at
  - launch_aggregates: one row (id 1) with total_launches,
    successful_launches, average_payload_mass_kg, last_updated_utc

# Operations

Each operation checks out one pooled connection for its duration and returns
it before the method returns, even on failure.

  - LatestLaunchTimestamp: max(date_utc) over stored documents, nil when empty
  - UpsertRaw: INSERT ... ON CONFLICT (id) DO NOTHING, one auto-committed
    statement per launch; returns the count of new rows
  - RecomputeAggregates: full scan, then ON CONFLICT (id) DO UPDATE of the
    single aggregate row
  - Aggregate, CountRaw, HasLaunch, RawLaunch: read helpers

# Errors

Write failures are returned as *WriteError and are never retried here:

	var werr *db.WriteError
	if errors.As(err, &werr) {
		log.Printf("%s failed for %s", werr.Op, werr.LaunchID)
	}
*/
package db
