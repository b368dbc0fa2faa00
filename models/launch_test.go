// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestValidateLaunch(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      LaunchRecord
		wantField string
		wantID    string
	}{
		{
			name: "populated payloads",
			raw: `{"id":"5eb87cd9ffd86e000604b32a","name":"FalconSat","flight_number":1,
				"date_utc":"2006-03-24T22:30:00.000Z","success":false,"upcoming":false,
				"static_fire_date_utc":"2006-03-17T00:00:00.000Z","launchpad":"5e9e4502f5090995de566f86",
				"payloads":[{"id":"5eb0e4b5b6c3bb0006eeb1e1","mass_kg":20}]}`,
			want: LaunchRecord{
				ID:                "5eb87cd9ffd86e000604b32a",
				Name:              "FalconSat",
				FlightNumber:      1,
				DateUTC:           time.Date(2006, 3, 24, 22, 30, 0, 0, time.UTC),
				Success:           ptr(false),
				StaticFireDateUTC: ptr(time.Date(2006, 3, 17, 0, 0, 0, 0, time.UTC)),
				Launchpad:         "5e9e4502f5090995de566f86",
				Payloads:          []PayloadRef{{ID: "5eb0e4b5b6c3bb0006eeb1e1", MassKg: ptr(20.0)}},
			},
		},
		{
			name: "bare payload ids and null mass",
			raw:  `{"id":"a","date_utc":"2020-01-01T00:00:00Z","upcoming":false,"payloads":["p1",{"id":"p2","mass_kg":null}]}`,
			want: LaunchRecord{
				ID:       "a",
				DateUTC:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				Payloads: []PayloadRef{{ID: "p1"}, {ID: "p2"}},
			},
		},
		{
			name: "optional fields default",
			raw:  `{"id":"b","date_utc":"2020-01-01T00:00:00Z","upcoming":true,"success":null,"launchpad":null}`,
			want: LaunchRecord{
				ID:       "b",
				DateUTC:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				Upcoming: true,
				Payloads: []PayloadRef{},
			},
		},
		{name: "missing id", raw: `{"date_utc":"2020-01-01T00:00:00Z","upcoming":false}`, wantField: "id"},
		{name: "empty id", raw: `{"id":"","date_utc":"2020-01-01T00:00:00Z","upcoming":false}`, wantField: "id"},
		{name: "numeric id", raw: `{"id":7,"date_utc":"2020-01-01T00:00:00Z","upcoming":false}`, wantField: "id"},
		{name: "missing date", raw: `{"id":"c","upcoming":false}`, wantField: "date_utc", wantID: "c"},
		{name: "bad date", raw: `{"id":"c","date_utc":"yesterday","upcoming":false}`, wantField: "date_utc", wantID: "c"},
		{name: "missing upcoming", raw: `{"id":"c","date_utc":"2020-01-01T00:00:00Z"}`, wantField: "upcoming", wantID: "c"},
		{name: "string success", raw: `{"id":"c","date_utc":"2020-01-01T00:00:00Z","upcoming":false,"success":"yes"}`, wantField: "success", wantID: "c"},
		{name: "payloads not array", raw: `{"id":"c","date_utc":"2020-01-01T00:00:00Z","upcoming":false,"payloads":{}}`, wantField: "payloads", wantID: "c"},
		{name: "payload mass string", raw: `{"id":"c","date_utc":"2020-01-01T00:00:00Z","upcoming":false,"payloads":[{"mass_kg":"heavy"}]}`, wantField: "payloads", wantID: "c"},
		{name: "bad static fire", raw: `{"id":"c","date_utc":"2020-01-01T00:00:00Z","upcoming":false,"static_fire_date_utc":"soon"}`, wantField: "static_fire_date_utc", wantID: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateLaunch(json.RawMessage(tt.raw))

			if tt.wantField != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
				}
				if verr.LaunchID != tt.wantID {
					t.Errorf("expected launch id %q, got %q", tt.wantID, verr.LaunchID)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("launch mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateLaunch_NotAnObject(t *testing.T) {
	for _, raw := range []string{`null`, `[]`, `"x"`, `{`} {
		if _, err := ValidateLaunch(json.RawMessage(raw)); err == nil {
			t.Errorf("expected rejection for %s", raw)
		}
	}
}

func TestValidateBatch(t *testing.T) {
	raws := []json.RawMessage{
		json.RawMessage(`{"id":"ok1","date_utc":"2020-01-01T00:00:00Z","upcoming":false}`),
		json.RawMessage(`{"date_utc":"2020-01-01T00:00:00Z","upcoming":false}`),
		json.RawMessage(`{"id":"ok2","date_utc":"2020-02-01T00:00:00Z","upcoming":true}`),
		json.RawMessage(`{"id":"bad","upcoming":false}`),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid, rejected := ValidateBatch(raws, logger)

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid launches, got %d", len(valid))
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejections, got %d", len(rejected))
	}
	if valid[0].Launch.ID != "ok1" || valid[1].Launch.ID != "ok2" {
		t.Errorf("order not preserved: %s, %s", valid[0].Launch.ID, valid[1].Launch.ID)
	}
	if string(valid[1].Raw) != string(raws[2]) {
		t.Error("raw document must be kept byte for byte")
	}
	if rejected[1].LaunchID != "bad" {
		t.Errorf("expected rejected id 'bad', got %q", rejected[1].LaunchID)
	}

	row := valid[0].ToRaw()
	if row.ID != "ok1" || string(row.Data) != string(raws[0]) {
		t.Errorf("unexpected raw row: %+v", row)
	}
}
