// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the launch data model and the record validator.

# Domain Types

  - LaunchRecord: typed view of one launch document (id, date_utc, success,
    upcoming, static_fire_date_utc, launchpad, payloads)
  - PayloadRef: payload id and nullable mass_kg
  - ValidatedLaunch: a LaunchRecord plus the raw bytes it came from
  - RawLaunch: a raw_launches row (id, launch_data, ingested_at)
  - Aggregate: the launch_aggregates row

# Validation

ValidateLaunch either returns a LaunchRecord or a *ValidationError:

	launch, err := models.ValidateLaunch(raw)
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		// drop the record, keep going
	}

Rules:

  - id (non-empty string), date_utc (RFC 3339) and upcoming (bool) are required
  - absent or null optional fields take their zero value
  - launchpad defaults to "" and payloads to an empty list
  - an optional field of the wrong JSON type rejects the record
  - payloads may be populated objects or bare id strings

ValidateBatch runs ValidateLaunch over a page of documents and logs one WARN
line per rejection. It never returns an error for a single bad record.

# Constants

	AggregateID     = 1
	ModeBackfill    = "backfill"
	ModeIncremental = "incremental"
*/
package models
