package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/volcanica/petro-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	samples    INTEGER NOT NULL,
	locations  INTEGER NOT NULL,
	unmatched  INTEGER NOT NULL,
	cache_hit  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	id              TEXT PRIMARY KEY,
	latitude        DOUBLE PRECISION NOT NULL,
	longitude       DOUBLE PRECISION NOT NULL,
	sample_ids      TEXT NOT NULL,
	volcano         TEXT NOT NULL,
	stabilized_km   DOUBLE PRECISION NOT NULL,
	rock_counts     JSONB NOT NULL,
	rock_counts_ni  JSONB NOT NULL,
	material_counts JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS location_volcanoes (
	location_id TEXT NOT NULL REFERENCES locations(id),
	volcano     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	bucket   TEXT NOT NULL,
	volcano  TEXT NOT NULL,
	material TEXT NOT NULL,
	rocks    JSONB NOT NULL,
	PRIMARY KEY (bucket, volcano, material)
);

CREATE INDEX IF NOT EXISTS idx_location_volcanoes_volcano ON location_volcanoes(volcano);
CREATE INDEX IF NOT EXISTS idx_profiles_volcano ON profiles(volcano);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, samples, locations, unmatched, cache_hit, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Samples, run.Locations, run.Unmatched, run.CacheHit, run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, samples, locations, unmatched, cache_hit, created_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Samples, &r.Locations, &r.Unmatched, &r.CacheHit, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ReplaceLocations(ctx context.Context, locations []model.AggregatedLocation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace locations")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"location_volcanoes", "locations"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for _, loc := range locations {
		id := uuid.New().String()
		rc, rcNI, mc, err := marshalCounts(loc)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO locations (id, latitude, longitude, sample_ids, volcano, stabilized_km, rock_counts, rock_counts_ni, material_counts)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, loc.Latitude, loc.Longitude, loc.SampleIDs, loc.Volcano, loc.StabilizedKM, rc, rcNI, mc,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert location")
		}
		for _, name := range model.SplitCombinedName(loc.Volcano) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO location_volcanoes (location_id, volcano) VALUES ($1, $2)`,
				id, name,
			); err != nil {
				return eris.Wrap(err, "postgres: insert location volcano")
			}
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace locations")
}

func (s *PostgresStore) ReplaceProfiles(ctx context.Context, bucket string, profiles []model.MajorRockProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace profiles")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE bucket = $1`, bucket); err != nil {
		return eris.Wrapf(err, "postgres: clear profiles %s", bucket)
	}

	for _, p := range profiles {
		rocksJSON, err := marshalRocks(p)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO profiles (bucket, volcano, material, rocks) VALUES ($1, $2, $3, $4)`,
			bucket, p.Volcano, string(p.Material), rocksJSON,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert profile %s", p.Volcano)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace profiles")
}

func (s *PostgresStore) LocationsByVolcano(ctx context.Context, name string) ([]model.AggregatedLocation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT l.latitude, l.longitude, l.sample_ids, l.volcano, l.stabilized_km, l.rock_counts, l.rock_counts_ni, l.material_counts
		 FROM locations l
		 JOIN location_volcanoes lv ON lv.location_id = l.id
		 WHERE lv.volcano = $1
		 ORDER BY l.latitude, l.longitude`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: locations for %s", name)
	}
	defer rows.Close()

	var out []model.AggregatedLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: locations iterate")
}

func (s *PostgresStore) ProfilesByVolcano(ctx context.Context, name string) ([]model.MajorRockProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT volcano, material, rocks FROM profiles WHERE volcano = $1 ORDER BY material`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: profiles for %s", name)
	}
	defer rows.Close()

	var out []model.MajorRockProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: profiles iterate")
}

func (s *PostgresStore) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT bucket FROM profiles ORDER BY bucket`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list buckets")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: buckets iterate")
}
