package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielhkuo/launch-ingester/cliparse"
	"github.com/danielhkuo/launch-ingester/db"
	"github.com/danielhkuo/launch-ingester/ingest"
	"github.com/danielhkuo/launch-ingester/launchapi"
	"github.com/danielhkuo/launch-ingester/metrics"
)

// pushTimeout bounds the metrics push, which runs even after a cancelled run
const pushTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stderr)
	cancel()
	os.Exit(code)
}

// run performs one ingestion and returns the process exit code
func run(ctx context.Context, args []string, stderr io.Writer) int {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("Error parsing flags", "error", err)
		return 1
	}

	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	if err != nil {
		logger.Error("invalid database type", "error", err)
		return 1
	}

	// Connect to the store
	conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		return 1
	}
	defer conn.Close()

	store := db.NewStore(conn, dialect, logger)
	client := launchapi.New(cfg.APIURL,
		launchapi.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		launchapi.WithLogger(logger),
		launchapi.WithPageSize(cfg.PageSize),
		launchapi.WithMaxPages(cfg.MaxPages),
		launchapi.WithRetry(cfg.MaxAttempts, cfg.RetryDelay, cfg.MaxRetryDelay),
	)
	recorder := metrics.NewRun()

	ingester := ingest.New(store, client,
		ingest.WithLogger(logger),
		ingest.WithRecorder(recorder),
	)
	_, runErr := ingester.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		if err := recorder.Push(pushCtx, cfg.PushgatewayURL); err != nil {
			logger.Warn("metrics push failed", "error", err)
		} else {
			logger.Debug("metrics pushed", "job", metrics.JobName)
		}
		cancel()
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func newLogger(cfg cliparse.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
