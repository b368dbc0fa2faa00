// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import "fmt"

// Stages of a run, used in IngestionError
const (
	StageSchema    = "schema"
	StageWatermark = "watermark"
	StageFetch     = "fetch"
	StageWrite     = "write"
	StageAggregate = "aggregate"
)

// IngestionError aborts a run. Rows written before the failure stay in place.
type IngestionError struct {
	Stage string
	RunID string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion run %s failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
