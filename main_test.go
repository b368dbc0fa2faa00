// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/launch-ingester/db"
	"github.com/danielhkuo/launch-ingester/testutil"
)

// isolateEnv keeps the developer's environment and any .env file out of run
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_TYPE", "DATABASE_URL", "API_URL", "PUSHGATEWAY_URL", "LOG_LEVEL", "LOG_FORMAT", "ENV_OVERRIDE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func openStore(t *testing.T, url string) *db.Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.SQLite, url)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return db.NewStore(conn, db.SQLite, testutil.DiscardLogger())
}

func TestRun_EndToEnd(t *testing.T) {
	isolateEnv(t)

	base := time.Date(2019, 5, 24, 2, 30, 0, 0, time.UTC)
	api := testutil.NewLaunchAPI(t,
		testutil.LaunchDoc{ID: "a", FlightNumber: 1, DateUTC: base, Success: testutil.Bool(true),
			PayloadMasses: []*float64{testutil.Float(13620)}}.JSON(),
		testutil.LaunchDoc{ID: "b", FlightNumber: 2, DateUTC: base.AddDate(0, 1, 0), Success: testutil.Bool(false)}.JSON(),
		testutil.LaunchDoc{ID: "c", FlightNumber: 3, DateUTC: base.AddDate(3, 0, 0), Upcoming: true}.JSON(),
	)

	var pushes atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/metrics/job/launch_ingester") {
			pushes.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	dbURL := testutil.TestSQLiteURL(t)
	args := []string{
		"-t", "sqlite",
		"-d", dbURL,
		"-api-url", api.URL(),
		"-pushgateway", gateway.URL,
		"-log-format", "json",
	}

	var stderr bytes.Buffer
	if code := run(context.Background(), args, &stderr); code != 0 {
		t.Fatalf("first run exited %d:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), `"msg":"ingestion run finished"`) {
		t.Errorf("expected a run summary line, got:\n%s", stderr.String())
	}

	stderr.Reset()
	if code := run(context.Background(), args, &stderr); code != 0 {
		t.Fatalf("second run exited %d:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), `"mode":"incremental"`) {
		t.Errorf("second run should be incremental, got:\n%s", stderr.String())
	}

	store := openStore(t, dbURL)
	count, err := store.CountRaw(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 stored launches, got %d", count)
	}

	agg, err := store.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if agg == nil || agg.TotalLaunches != 2 || agg.SuccessfulLaunches != 1 {
		t.Errorf("unexpected aggregate %+v", agg)
	}

	if pushes.Load() != 2 {
		t.Errorf("expected 2 metric pushes, got %d", pushes.Load())
	}
}

func TestRun_ConfigError(t *testing.T) {
	isolateEnv(t)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-t", "sqlite", "-d", testutil.TestSQLiteURL(t)}, &stderr)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "API_URL required") {
		t.Errorf("expected missing API_URL in log, got:\n%s", stderr.String())
	}
}

func TestRun_Help(t *testing.T) {
	isolateEnv(t)

	if code := run(context.Background(), []string{"-h"}, &bytes.Buffer{}); code != 0 {
		t.Errorf("expected exit 0 for -h, got %d", code)
	}
}

func TestRun_IngestionFailure(t *testing.T) {
	isolateEnv(t)

	api := testutil.NewLaunchAPI(t)
	api.FailNext(http.StatusNotFound)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-t", "sqlite",
		"-d", testutil.TestSQLiteURL(t),
		"-api-url", api.URL(),
	}, &stderr)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "ingestion run failed") {
		t.Errorf("expected failure line, got:\n%s", stderr.String())
	}
}
