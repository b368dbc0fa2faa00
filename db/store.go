// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/launch-ingester/models"
)

// Store owns raw_launches and launch_aggregates. Every method checks out its
// own connection and returns it before returning, even on failure.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

func NewStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dialect: dialect, logger: logger, now: time.Now}
}

func (s *Store) Dialect() Dialect { return s.dialect }

// withConn scopes a logical operation to a single pooled connection.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// CreateSchema ensures both tables exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return CreateSchema(ctx, conn, s.dialect)
	})
	if err != nil {
		return &WriteError{Op: "create schema", Err: err}
	}
	return nil
}

// LatestLaunchTimestamp returns the newest date_utc among stored launches, or
// nil when nothing is stored yet.
func (s *Store) LatestLaunchTimestamp(ctx context.Context) (*time.Time, error) {
	var latest nullTimestamp
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.latestLaunchQuery()).Scan(&latest)
	})
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest launch date: %w", err)
	}

	if !latest.Valid {
		s.logger.Info("no existing launches found")
		return nil, nil
	}

	t := latest.Time.UTC()
	s.logger.Info("most recent stored launch", "date_utc", t.Format(time.RFC3339))
	return &t, nil
}

func (s *Store) latestLaunchQuery() string {
	if s.dialect == SQLite {
		return `
		SELECT json_extract(launch_data, '$.date_utc')
		FROM raw_launches
		ORDER BY julianday(json_extract(launch_data, '$.date_utc')) DESC
		LIMIT 1
	`
	}
	return `SELECT MAX((launch_data->>'date_utc')::timestamptz) FROM raw_launches`
}

// UpsertRaw inserts each launch unless its id is already stored. Existing rows
// are never overwritten. Each insert commits on its own, so a failure part way
// through keeps the rows already written. Returns the number of new rows.
func (s *Store) UpsertRaw(ctx context.Context, launches []models.RawLaunch) (int, error) {
	if len(launches) == 0 {
		return 0, nil
	}

	query := s.dialect.rebind(`
		INSERT INTO raw_launches (id, launch_data, ingested_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`)

	written := 0
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		for i, launch := range launches {
			if launch.ID == "" {
				return &WriteError{Op: "insert", Err: errors.New("launch id is empty")}
			}

			ingestedAt := launch.IngestedAt
			if ingestedAt.IsZero() {
				ingestedAt = s.now()
			}

			result, err := conn.ExecContext(ctx, query, launch.ID, string(launch.Data), s.dialect.timeArg(ingestedAt))
			if err != nil {
				return &WriteError{Op: "insert", LaunchID: launch.ID, Err: err}
			}

			n, err := result.RowsAffected()
			if err != nil {
				return &WriteError{Op: "insert", LaunchID: launch.ID, Err: err}
			}
			if n > 0 {
				written++
				s.logger.Debug("inserted launch", "launch_id", launch.ID, "n", i+1, "of", len(launches))
			} else {
				s.logger.Debug("launch already stored, skipped", "launch_id", launch.ID)
			}
		}
		return nil
	})
	if err != nil {
		var werr *WriteError
		if !errors.As(err, &werr) {
			err = &WriteError{Op: "insert", Err: err}
		}
		return written, err
	}

	return written, nil
}

// RecomputeAggregates rebuilds the aggregate row from a full scan of
// raw_launches and upserts it in place.
//
// average_payload_mass_kg is the mean, over launches with at least one known
// payload mass, of the sum of that launch's non-null masses. It is NULL when no
// launch has a known mass.
func (s *Store) RecomputeAggregates(ctx context.Context) (models.Aggregate, error) {
	query := recomputePostgres
	if s.dialect == SQLite {
		query = recomputeSQLite
	}

	var agg models.Aggregate
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, query, models.AggregateID, s.dialect.timeArg(s.now()))
		return scanAggregate(row, &agg)
	})
	if err != nil {
		return models.Aggregate{}, &WriteError{Op: "recompute aggregates", Err: err}
	}

	s.logger.Info("launch aggregates updated",
		"total_launches", agg.TotalLaunches,
		"successful_launches", agg.SuccessfulLaunches,
		"average_payload_mass_kg", agg.AveragePayloadMassKg,
	)
	return agg, nil
}

// Aggregate returns the stored aggregate row, or nil before the first run.
func (s *Store) Aggregate(ctx context.Context) (*models.Aggregate, error) {
	query := s.dialect.rebind(`
		SELECT id, total_launches, successful_launches, average_payload_mass_kg, last_updated_utc
		FROM launch_aggregates
		WHERE id = $1
	`)

	var agg models.Aggregate
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return scanAggregate(conn.QueryRowContext(ctx, query, models.AggregateID), &agg)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	return &agg, nil
}

// CountRaw returns the number of stored launches.
func (s *Store) CountRaw(ctx context.Context) (int64, error) {
	var n int64
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_launches`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count launches: %w", err)
	}
	return n, nil
}

// HasLaunch reports whether a launch id is stored.
func (s *Store) HasLaunch(ctx context.Context, id string) (bool, error) {
	query := s.dialect.rebind(`SELECT COUNT(*) FROM raw_launches WHERE id = $1`)

	var n int64
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, query, id).Scan(&n)
	})
	if err != nil {
		return false, fmt.Errorf("failed to query launch %s: %w", id, err)
	}
	return n > 0, nil
}

// RawLaunch returns one stored row.
func (s *Store) RawLaunch(ctx context.Context, id string) (*models.RawLaunch, error) {
	query := s.dialect.rebind(`SELECT id, launch_data, ingested_at FROM raw_launches WHERE id = $1`)

	var (
		row        models.RawLaunch
		data       string
		ingestedAt nullTimestamp
	)
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, query, id).Scan(&row.ID, &data, &ingestedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query launch %s: %w", id, err)
	}

	row.Data = []byte(data)
	row.IngestedAt = ingestedAt.Time
	return &row, nil
}

func scanAggregate(row *sql.Row, agg *models.Aggregate) error {
	var (
		avg     sql.NullFloat64
		updated nullTimestamp
	)
	if err := row.Scan(&agg.ID, &agg.TotalLaunches, &agg.SuccessfulLaunches, &avg, &updated); err != nil {
		return err
	}

	agg.AveragePayloadMassKg = nil
	if avg.Valid {
		v := avg.Float64
		agg.AveragePayloadMassKg = &v
	}
	agg.LastUpdatedUTC = updated.Time.UTC()
	return nil
}

const recomputePostgres = `
	INSERT INTO launch_aggregates (id, total_launches, successful_launches, average_payload_mass_kg, last_updated_utc)
	SELECT $1::int,
	       (SELECT COUNT(*) FROM raw_launches),
	       (SELECT COUNT(*) FROM raw_launches WHERE launch_data->'success' = 'true'::jsonb),
	       (SELECT AVG(launch_mass) FROM (
	            SELECT SUM((p->>'mass_kg')::double precision) AS launch_mass
	            FROM raw_launches AS r
	            CROSS JOIN LATERAL jsonb_array_elements(
	                CASE WHEN jsonb_typeof(r.launch_data->'payloads') = 'array'
	                     THEN r.launch_data->'payloads'
	                     ELSE '[]'::jsonb
	                END) AS p
	            WHERE jsonb_typeof(p) = 'object' AND jsonb_typeof(p->'mass_kg') = 'number'
	            GROUP BY r.id
	       ) AS masses),
	       $2::timestamptz
	WHERE true
	ON CONFLICT (id) DO UPDATE SET
	    total_launches = EXCLUDED.total_launches,
	    successful_launches = EXCLUDED.successful_launches,
	    average_payload_mass_kg = EXCLUDED.average_payload_mass_kg,
	    last_updated_utc = EXCLUDED.last_updated_utc
	RETURNING id, total_launches, successful_launches, average_payload_mass_kg, last_updated_utc
`

// SQLite needs the WHERE on INSERT ... SELECT to parse the upsert clause.
const recomputeSQLite = `
	INSERT INTO launch_aggregates (id, total_launches, successful_launches, average_payload_mass_kg, last_updated_utc)
	SELECT ?1,
	       (SELECT COUNT(*) FROM raw_launches),
	       (SELECT COUNT(*) FROM raw_launches WHERE json_type(launch_data, '$.success') = 'true'),
	       (SELECT AVG(launch_mass) FROM (
	            SELECT SUM(json_extract(p.value, '$.mass_kg')) AS launch_mass
	            FROM raw_launches AS r, json_each(r.launch_data, '$.payloads') AS p
	            WHERE p.type = 'object' AND json_type(p.value, '$.mass_kg') IN ('integer', 'real')
	            GROUP BY r.id
	       )),
	       ?2
	WHERE true
	ON CONFLICT (id) DO UPDATE SET
	    total_launches = excluded.total_launches,
	    successful_launches = excluded.successful_launches,
	    average_payload_mass_kg = excluded.average_payload_mass_kg,
	    last_updated_utc = excluded.last_updated_utc
	RETURNING id, total_launches, successful_launches, average_payload_mass_kg, last_updated_utc
`
