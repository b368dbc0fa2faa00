// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/launch-ingester/metrics"
	"github.com/danielhkuo/launch-ingester/models"
)

// LaunchStore is the watermark reader and store writer.
type LaunchStore interface {
	CreateSchema(ctx context.Context) error
	LatestLaunchTimestamp(ctx context.Context) (*time.Time, error)
	UpsertRaw(ctx context.Context, launches []models.RawLaunch) (int, error)
	RecomputeAggregates(ctx context.Context) (models.Aggregate, error)
}

// LaunchFetcher returns raw launch documents newer than since, or all of them
// when since is nil.
type LaunchFetcher interface {
	Fetch(ctx context.Context, since *time.Time) ([]json.RawMessage, error)
}

// RunRecorder receives the counts of a run. *metrics.Run implements it.
type RunRecorder interface {
	RecordFetched(n int)
	RecordDropped(reason string, n int)
	RecordWritten(written, duplicates int)
	RecordAggregate(agg models.Aggregate)
	RecordOutcome(mode string, err error, duration time.Duration)
}

// Summary describes one finished (or aborted) run.
type Summary struct {
	RunID      string
	Mode       string
	Since      *time.Time
	Fetched    int
	Rejected   int
	Upcoming   int
	Stale      int
	Written    int
	Duplicates int
	Aggregate  models.Aggregate
	Duration   time.Duration
}

type Ingester struct {
	store    LaunchStore
	api      LaunchFetcher
	recorder RunRecorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Ingester)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) { i.logger = logger }
}

func WithRecorder(r RunRecorder) Option {
	return func(i *Ingester) { i.recorder = r }
}

// WithClock replaces time.Now, for tests that check durations.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

func New(store LaunchStore, api LaunchFetcher, opts ...Option) *Ingester {
	i := &Ingester{
		store:  store,
		api:    api,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.recorder == nil {
		i.recorder = nopRecorder{}
	}
	return i
}

// Run performs one ingestion: read the watermark, fetch, validate, filter,
// write, and recompute the aggregates. Finding nothing new is not an error.
func (i *Ingester) Run(ctx context.Context) (Summary, error) {
	start := i.now()
	summary := Summary{RunID: uuid.NewString()}
	logger := i.logger.With("run_id", summary.RunID)

	logger.Info("starting ingestion run")
	err := i.run(ctx, logger, &summary)
	summary.Duration = i.now().Sub(start)
	i.recorder.RecordOutcome(summary.Mode, err, summary.Duration)

	if err != nil {
		logger.Error("ingestion run failed",
			"mode", summary.Mode,
			"fetched", summary.Fetched,
			"written", summary.Written,
			"error", err,
		)
		return summary, err
	}

	logger.Info("ingestion run finished",
		"mode", summary.Mode,
		"fetched", summary.Fetched,
		"rejected", summary.Rejected,
		"upcoming", summary.Upcoming,
		"stale", summary.Stale,
		"written", summary.Written,
		"duplicates", summary.Duplicates,
		"total_launches", summary.Aggregate.TotalLaunches,
		"successful_launches", summary.Aggregate.SuccessfulLaunches,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

func (i *Ingester) run(ctx context.Context, logger *slog.Logger, summary *Summary) error {
	fail := func(stage string, err error) error {
		return &IngestionError{Stage: stage, RunID: summary.RunID, Err: err}
	}

	if err := i.store.CreateSchema(ctx); err != nil {
		return fail(StageSchema, err)
	}

	since, err := i.store.LatestLaunchTimestamp(ctx)
	if err != nil {
		return fail(StageWatermark, err)
	}
	summary.Since = since
	if since == nil {
		summary.Mode = models.ModeBackfill
		logger.Info("store is empty, performing a full backfill of past launches")
	} else {
		summary.Mode = models.ModeIncremental
		logger.Info("store has prior data, performing an incremental load",
			"since", since.Format(time.RFC3339))
	}

	raws, err := i.api.Fetch(ctx, since)
	if err != nil {
		return fail(StageFetch, err)
	}
	summary.Fetched = len(raws)
	i.recorder.RecordFetched(len(raws))

	valid, rejected := models.ValidateBatch(raws, logger)
	summary.Rejected = len(rejected)
	i.recorder.RecordDropped(metrics.DropRejected, len(rejected))

	batch, upcoming, stale := filterLaunches(valid, since, logger)
	summary.Upcoming, summary.Stale = upcoming, stale
	i.recorder.RecordDropped(metrics.DropUpcoming, upcoming)
	i.recorder.RecordDropped(metrics.DropStale, stale)

	if len(batch) == 0 {
		logger.Info("no new launches to ingest")
	} else {
		logger.Info("inserting new launches", "count", len(batch))
		written, err := i.store.UpsertRaw(ctx, batch)
		summary.Written = written
		if err != nil {
			i.recorder.RecordWritten(written, 0)
			return fail(StageWrite, err)
		}
		summary.Duplicates = len(batch) - written
		i.recorder.RecordWritten(written, summary.Duplicates)
	}

	// Aggregates are recomputed even on a no-op run
	agg, err := i.store.RecomputeAggregates(ctx)
	if err != nil {
		return fail(StageAggregate, err)
	}
	summary.Aggregate = agg
	i.recorder.RecordAggregate(agg)

	return nil
}

// filterLaunches drops launches flagged upcoming, which the API sometimes
// returns even for past-only queries, and in incremental mode anything not
// strictly newer than the watermark.
func filterLaunches(valid []models.ValidatedLaunch, since *time.Time, logger *slog.Logger) (batch []models.RawLaunch, upcoming, stale int) {
	batch = make([]models.RawLaunch, 0, len(valid))
	for _, v := range valid {
		if v.Launch.Upcoming {
			logger.Debug("dropping upcoming launch", "launch_id", v.Launch.ID)
			upcoming++
			continue
		}
		if since != nil && !v.Launch.DateUTC.After(*since) {
			logger.Debug("dropping launch not newer than watermark",
				"launch_id", v.Launch.ID,
				"date_utc", v.Launch.DateUTC.Format(time.RFC3339),
			)
			stale++
			continue
		}
		batch = append(batch, v.ToRaw())
	}
	return batch, upcoming, stale
}

type nopRecorder struct{}

func (nopRecorder) RecordFetched(int)                           {}
func (nopRecorder) RecordDropped(string, int)                   {}
func (nopRecorder) RecordWritten(int, int)                      {}
func (nopRecorder) RecordAggregate(models.Aggregate)            {}
func (nopRecorder) RecordOutcome(string, error, time.Duration) {}
