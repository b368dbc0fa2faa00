// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ingest runs one launch ingestion: it decides between backfill and
incremental mode, fetches, validates, filters and writes launches, then
recomputes the aggregate row.

# Usage

	ing := ingest.New(store, client,
		ingest.WithLogger(logger),
		ingest.WithRecorder(metrics.NewRun()),
	)
	summary, err := ing.Run(ctx)

# Stages

  - schema: CreateSchema (idempotent)
  - watermark: LatestLaunchTimestamp; nil selects backfill
  - fetch: all launches, or those with date_utc after the watermark
  - validate: malformed documents are logged and counted, never fatal
  - filter: upcoming launches are always dropped; in incremental mode so is
    anything not strictly newer than the watermark
  - write: UpsertRaw, skipping ids already stored
  - aggregate: RecomputeAggregates, also on runs that wrote nothing

A failing stage aborts the run with *IngestionError naming the stage. Rows
written before a write failure stay, and the next run skips them as
duplicates.

Every log line of a run carries its run_id.
*/
package ingest
