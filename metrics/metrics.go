// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/danielhkuo/launch-ingester/models"
)

const (
	Namespace = "launch_ingester"
	JobName   = "launch_ingester"
)

// Drop reasons
const (
	DropRejected = "rejected"
	DropUpcoming = "upcoming"
	DropStale    = "stale"
)

// Run collects the metrics of one ingestion run in its own registry, so a
// batch job can push exactly what it measured.
type Run struct {
	registry *prometheus.Registry

	fetched       prometheus.Counter
	dropped       *prometheus.CounterVec
	written       prometheus.Counter
	duplicates    prometheus.Counter
	totalLaunches prometheus.Gauge
	successful    prometheus.Gauge
	averageMass   prometheus.Gauge
	duration      *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
	lastFailure   prometheus.Gauge
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_fetched_total",
			Help:      "Launch documents returned by the API",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_dropped_total",
			Help:      "Launch documents dropped before the write, grouped by reason",
		}, []string{"reason"}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_written_total",
			Help:      "New rows inserted into raw_launches",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_duplicate_total",
			Help:      "Launches skipped because their id was already stored",
		}),
		totalLaunches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "aggregate_total_launches",
			Help:      "total_launches of the aggregate row after the run",
		}),
		successful: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "aggregate_successful_launches",
			Help:      "successful_launches of the aggregate row after the run",
		}),
		averageMass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "aggregate_average_payload_mass_kg",
			Help:      "average_payload_mass_kg of the aggregate row after the run, 0 when unknown",
		}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}, []string{"mode"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
		lastFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_failure_timestamp_seconds",
			Help:      "Unix time of the last failed run",
		}),
	}

	r.registry.MustRegister(
		r.fetched, r.dropped, r.written, r.duplicates,
		r.totalLaunches, r.successful, r.averageMass,
		r.duration, r.lastSuccess, r.lastFailure,
	)
	return r
}

func (r *Run) Registry() *prometheus.Registry { return r.registry }

func (r *Run) RecordFetched(n int) {
	r.fetched.Add(float64(n))
}

func (r *Run) RecordDropped(reason string, n int) {
	r.dropped.With(prometheus.Labels{"reason": reason}).Add(float64(n))
}

func (r *Run) RecordWritten(written, duplicates int) {
	r.written.Add(float64(written))
	r.duplicates.Add(float64(duplicates))
}

func (r *Run) RecordAggregate(agg models.Aggregate) {
	r.totalLaunches.Set(float64(agg.TotalLaunches))
	r.successful.Set(float64(agg.SuccessfulLaunches))
	if agg.AveragePayloadMassKg != nil {
		r.averageMass.Set(*agg.AveragePayloadMassKg)
	} else {
		r.averageMass.Set(0)
	}
}

func (r *Run) RecordOutcome(mode string, err error, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	r.duration.With(prometheus.Labels{"mode": mode}).Set(duration.Seconds())
	if err != nil {
		r.lastFailure.SetToCurrentTime()
		return
	}
	r.lastSuccess.SetToCurrentTime()
}

// Push sends everything in the run's registry to a Prometheus Pushgateway,
// replacing the previous push of the same job.
func (r *Run) Push(ctx context.Context, url string) error {
	err := push.New(url, JobName).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
