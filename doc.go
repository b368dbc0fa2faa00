// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the launch ingester.

The ingester is a batch job: each invocation pulls launches from the public
launches API, stores new ones as raw JSON documents and refreshes a one-row
summary table, then exits. Schedule it with cron or a Kubernetes CronJob.

# Running

	API_URL=https://api.spacexdata.com/v5/launches/query \
	DATABASE_URL=postgres://... go run .

Or against a local SQLite file:

	go run . -t sqlite -d file:launches.db -api-url https://api.spacexdata.com/v5/launches/query

Exit status is 0 when the run finished, 1 on a configuration or ingestion
failure.

# Modes

The first run on an empty store backfills every past launch. Later runs ask
only for launches dated after the newest one stored. Running twice against
an unchanged API writes nothing the second time.

# Architecture

  - cliparse: configuration from .env, environment and flags
  - launchapi: paginated, retrying client for the query endpoint
  - middleware: HTTP transport logging and JSON helpers
  - models: launch types and lenient validation
  - db: schema, watermark, idempotent writes, aggregate recomputation
  - ingest: the run itself
  - metrics: per-run Prometheus metrics, pushed when PUSHGATEWAY_URL is set

See package documentation for each component.
*/
package main
