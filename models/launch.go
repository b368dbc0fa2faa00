// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ValidationError rejects a single launch document. It never aborts a batch.
type ValidationError struct {
	LaunchID string // empty when the id itself could not be read
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	id := e.LaunchID
	if id == "" {
		id = "N/A"
	}
	if e.Field == "" {
		return fmt.Sprintf("launch %s: %s", id, e.Reason)
	}
	return fmt.Sprintf("launch %s: %s: %s", id, e.Field, e.Reason)
}

// ValidateLaunch parses one raw API document.
// id, date_utc and upcoming are required; everything else falls back to its zero
// value when absent or null. A present field of the wrong type is rejected.
func ValidateLaunch(raw json.RawMessage) (LaunchRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return LaunchRecord{}, &ValidationError{Reason: "document is not a JSON object"}
	}

	var launch LaunchRecord

	// id first so later rejections can name the record
	ok, err := decodeField(fields, "id", &launch.ID)
	if err != nil {
		return LaunchRecord{}, &ValidationError{Field: "id", Reason: err.Error()}
	}
	if !ok || launch.ID == "" {
		return LaunchRecord{}, &ValidationError{Field: "id", Reason: "required"}
	}

	reject := func(field, reason string) (LaunchRecord, error) {
		return LaunchRecord{}, &ValidationError{LaunchID: launch.ID, Field: field, Reason: reason}
	}

	date, err := requiredTime(fields, "date_utc")
	if err != nil {
		return reject("date_utc", err.Error())
	}
	launch.DateUTC = date

	ok, err = decodeField(fields, "upcoming", &launch.Upcoming)
	if err != nil {
		return reject("upcoming", err.Error())
	}
	if !ok {
		return reject("upcoming", "required")
	}

	if _, err := decodeField(fields, "name", &launch.Name); err != nil {
		return reject("name", err.Error())
	}
	if _, err := decodeField(fields, "flight_number", &launch.FlightNumber); err != nil {
		return reject("flight_number", err.Error())
	}
	if _, err := decodeField(fields, "launchpad", &launch.Launchpad); err != nil {
		return reject("launchpad", err.Error())
	}

	var success bool
	ok, err = decodeField(fields, "success", &success)
	if err != nil {
		return reject("success", err.Error())
	}
	if ok {
		launch.Success = &success
	}

	var staticFire string
	ok, err = decodeField(fields, "static_fire_date_utc", &staticFire)
	if err != nil {
		return reject("static_fire_date_utc", err.Error())
	}
	if ok {
		t, err := time.Parse(time.RFC3339, staticFire)
		if err != nil {
			return reject("static_fire_date_utc", "not an RFC 3339 timestamp")
		}
		launch.StaticFireDateUTC = &t
	}

	payloads, err := parsePayloads(fields["payloads"])
	if err != nil {
		return reject("payloads", err.Error())
	}
	launch.Payloads = payloads

	return launch, nil
}

// ValidateBatch validates every document, logging one line per rejection.
func ValidateBatch(raws []json.RawMessage, logger *slog.Logger) ([]ValidatedLaunch, []*ValidationError) {
	if logger == nil {
		logger = slog.Default()
	}

	valid := make([]ValidatedLaunch, 0, len(raws))
	var rejected []*ValidationError
	for _, raw := range raws {
		launch, err := ValidateLaunch(raw)
		if err != nil {
			verr, ok := err.(*ValidationError)
			if !ok {
				verr = &ValidationError{Reason: err.Error()}
			}
			logger.Warn("launch record rejected",
				"launch_id", verr.LaunchID,
				"field", verr.Field,
				"reason", verr.Reason,
			)
			rejected = append(rejected, verr)
			continue
		}
		valid = append(valid, ValidatedLaunch{Launch: launch, Raw: raw})
	}

	return valid, rejected
}

// decodeField reports false when the key is absent or null.
func decodeField(fields map[string]json.RawMessage, key string, dst any) (bool, error) {
	v, ok := fields[key]
	if !ok || isNull(v) {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("malformed value %s", bytes.TrimSpace(v))
	}
	return true, nil
}

func requiredTime(fields map[string]json.RawMessage, key string) (time.Time, error) {
	var s string
	ok, err := decodeField(fields, key, &s)
	if err != nil {
		return time.Time{}, err
	}
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an RFC 3339 timestamp")
	}
	return t, nil
}

// parsePayloads accepts populated payload objects and bare payload ids.
func parsePayloads(v json.RawMessage) ([]PayloadRef, error) {
	if v == nil || isNull(v) {
		return []PayloadRef{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(v, &elems); err != nil {
		return nil, fmt.Errorf("not an array")
	}

	refs := make([]PayloadRef, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		switch {
		case len(elem) > 0 && elem[0] == '"':
			var id string
			if err := json.Unmarshal(elem, &id); err != nil {
				return nil, fmt.Errorf("element %d: malformed id", i)
			}
			refs = append(refs, PayloadRef{ID: id})
		case len(elem) > 0 && elem[0] == '{':
			var ref PayloadRef
			if err := json.Unmarshal(elem, &ref); err != nil {
				return nil, fmt.Errorf("element %d: malformed payload", i)
			}
			refs = append(refs, ref)
		default:
			return nil, fmt.Errorf("element %d: expected object or id", i)
		}
	}
	return refs, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
