package models

import (
	"encoding/json"
	"time"
)

// AggregateID is the key of the single launch_aggregates row.
const AggregateID = 1

// Run modes
const (
	ModeBackfill    = "backfill"
	ModeIncremental = "incremental"
)

// Domain types

// LaunchRecord is the typed view of one launch document. The stored document is
// always the raw payload; this struct only exists to validate and filter it.
type LaunchRecord struct {
	ID                string       `json:"id"`
	Name              string       `json:"name,omitempty"`
	FlightNumber      int          `json:"flight_number,omitempty"`
	DateUTC           time.Time    `json:"date_utc"`
	Success           *bool        `json:"success"`
	Upcoming          bool         `json:"upcoming"`
	StaticFireDateUTC *time.Time   `json:"static_fire_date_utc"`
	Launchpad         string       `json:"launchpad"`
	Payloads          []PayloadRef `json:"payloads"`
}

// PayloadRef is either a populated payload object or a bare payload id.
type PayloadRef struct {
	ID     string   `json:"id,omitempty"`
	MassKg *float64 `json:"mass_kg"`
}

// ValidatedLaunch pairs a record with the exact bytes it was parsed from.
type ValidatedLaunch struct {
	Launch LaunchRecord
	Raw    json.RawMessage
}

// RawLaunch is one row of raw_launches.
type RawLaunch struct {
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"launch_data"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// Aggregate is the launch_aggregates row.
type Aggregate struct {
	ID                   int       `json:"id"`
	TotalLaunches        int64     `json:"total_launches"`
	SuccessfulLaunches   int64     `json:"successful_launches"`
	AveragePayloadMassKg *float64  `json:"average_payload_mass_kg,omitempty"`
	LastUpdatedUTC       time.Time `json:"last_updated_utc"`
}

// ToRaw returns the row to persist for a validated launch.
func (v ValidatedLaunch) ToRaw() RawLaunch {
	return RawLaunch{ID: v.Launch.ID, Data: v.Raw}
}
