// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/launch-ingester/db"
)

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSQLiteURL returns a connection string for a fresh SQLite file that is
// removed with the test
func TestSQLiteURL(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launches.db")
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}

// TestPostgresURL returns TEST_DATABASE_URL or skips the test
func TestPostgresURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return url
}

// SetupTestDB creates a fresh SQLite store with the full schema
func SetupTestDB(t *testing.T) *db.Store {
	t.Helper()

	conn, err := db.Open(context.Background(), db.SQLite, TestSQLiteURL(t))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := db.NewStore(conn, db.SQLite, DiscardLogger())
	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return store
}

func Bool(b bool) *bool { return &b }

func Float(f float64) *float64 { return &f }

// LaunchDoc builds a launch document shaped like the API's populated output.
// A nil entry in PayloadMasses becomes a payload with mass_kg null.
type LaunchDoc struct {
	ID            string
	Name          string
	FlightNumber  int
	DateUTC       time.Time
	Success       *bool
	Upcoming      bool
	Launchpad     string
	PayloadMasses []*float64
}

// JSON renders the document. The date uses the API's millisecond layout.
func (d LaunchDoc) JSON() json.RawMessage {
	payloads := make([]map[string]any, 0, len(d.PayloadMasses))
	for i, mass := range d.PayloadMasses {
		payloads = append(payloads, map[string]any{
			"id":      fmt.Sprintf("%s-payload-%d", d.ID, i),
			"mass_kg": mass,
		})
	}

	doc := map[string]any{
		"id":                   d.ID,
		"name":                 d.Name,
		"flight_number":        d.FlightNumber,
		"date_utc":             d.DateUTC.UTC().Format("2006-01-02T15:04:05.000Z"),
		"success":              d.Success,
		"upcoming":             d.Upcoming,
		"static_fire_date_utc": nil,
		"launchpad":            d.Launchpad,
		"payloads":             payloads,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

// APIRequest is one query received by LaunchAPI
type APIRequest struct {
	Since string // $gt bound on date_utc, empty for a full query
	Page  int
	Limit int
}

// LaunchAPI is an in-memory launches query endpoint. It applies the date_utc
// $gt filter and paginates like the real service.
type LaunchAPI struct {
	Server *httptest.Server

	mu           sync.Mutex
	ignoreFilter bool
	docs         []json.RawMessage
	requests []APIRequest
	failures []int
}

// NewLaunchAPI starts a mock API serving docs. It is closed with the test.
func NewLaunchAPI(t *testing.T, docs ...json.RawMessage) *LaunchAPI {
	t.Helper()
	api := &LaunchAPI{docs: docs}
	api.Server = httptest.NewServer(http.HandlerFunc(api.handleQuery))
	t.Cleanup(api.Server.Close)
	return api
}

// URL is the query endpoint
func (a *LaunchAPI) URL() string {
	return a.Server.URL + "/v5/launches/query"
}

// SetDocs replaces the served documents
func (a *LaunchAPI) SetDocs(docs ...json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = docs
}

// AddDocs appends to the served documents
func (a *LaunchAPI) AddDocs(docs ...json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = append(a.docs, docs...)
}

// IgnoreFilter makes the server return every document regardless of the
// query, the way the real API leaks upcoming launches into past-only results.
func (a *LaunchAPI) IgnoreFilter(ignore bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ignoreFilter = ignore
}

// FailNext makes the next len(statuses) requests answer with those status codes
func (a *LaunchAPI) FailNext(statuses ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, statuses...)
}

// Requests returns every query received so far, failed ones included
func (a *LaunchAPI) Requests() []APIRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]APIRequest(nil), a.requests...)
}

type mockQuery struct {
	Query struct {
		DateUTC *struct {
			Gt string `json:"$gt"`
		} `json:"date_utc"`
	} `json:"query"`
	Options struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"options"`
}

func (a *LaunchAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var q mockQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "invalid query", http.StatusBadRequest)
		return
	}

	req := APIRequest{Page: q.Options.Page, Limit: q.Options.Limit}
	if q.Query.DateUTC != nil {
		req.Since = q.Query.DateUTC.Gt
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 10
	}

	a.mu.Lock()
	a.requests = append(a.requests, req)
	if len(a.failures) > 0 {
		status := a.failures[0]
		a.failures = a.failures[1:]
		a.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}
	docs := a.matching(req.Since)
	a.mu.Unlock()

	total := len(docs)
	totalPages := (total + req.Limit - 1) / req.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	start := min((req.Page-1)*req.Limit, total)
	end := min(start+req.Limit, total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"docs":        docs[start:end],
		"totalDocs":   total,
		"page":        req.Page,
		"totalPages":  totalPages,
		"hasNextPage": req.Page < totalPages,
	})
}

// matching must be called with a.mu held
func (a *LaunchAPI) matching(since string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(a.docs))
	if since == "" || a.ignoreFilter {
		return append(out, a.docs...)
	}

	bound, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return out
	}
	for _, doc := range a.docs {
		var d struct {
			DateUTC string `json:"date_utc"`
		}
		if json.Unmarshal(doc, &d) != nil {
			continue
		}
		date, err := time.Parse(time.RFC3339, d.DateUTC)
		if err != nil || !date.After(bound) {
			continue
		}
		out = append(out, doc)
	}
	return out
}
