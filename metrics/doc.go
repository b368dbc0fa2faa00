// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics records Prometheus metrics for an ingestion run.

A run owns a private registry; after the run the job pushes it to a
Pushgateway when one is configured:

	rec := metrics.NewRun()
	summary, err := ingester.Run(ctx) // ingester built with ingest.WithRecorder(rec)
	if cfg.PushgatewayURL != "" {
		if err := rec.Push(ctx, cfg.PushgatewayURL); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

# Metrics

All names are prefixed with launch_ingester_:

  - records_fetched_total
  - records_dropped_total{reason="rejected|upcoming|stale"}
  - records_written_total, records_duplicate_total
  - aggregate_total_launches, aggregate_successful_launches,
    aggregate_average_payload_mass_kg
  - run_duration_seconds{mode="backfill|incremental"}
  - last_success_timestamp_seconds, last_failure_timestamp_seconds
*/
package metrics
