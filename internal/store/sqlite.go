package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/volcanica/petro-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	samples    INTEGER NOT NULL,
	locations  INTEGER NOT NULL,
	unmatched  INTEGER NOT NULL,
	cache_hit  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS locations (
	id              TEXT PRIMARY KEY,
	latitude        REAL NOT NULL,
	longitude       REAL NOT NULL,
	sample_ids      TEXT NOT NULL,
	volcano         TEXT NOT NULL,
	stabilized_km   REAL NOT NULL,
	rock_counts     TEXT NOT NULL,
	rock_counts_ni  TEXT NOT NULL,
	material_counts TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS location_volcanoes (
	location_id TEXT NOT NULL REFERENCES locations(id),
	volcano     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	bucket   TEXT NOT NULL,
	volcano  TEXT NOT NULL,
	material TEXT NOT NULL,
	rocks    TEXT NOT NULL,
	PRIMARY KEY (bucket, volcano, material)
);

CREATE INDEX IF NOT EXISTS idx_location_volcanoes_volcano ON location_volcanoes(volcano);
CREATE INDEX IF NOT EXISTS idx_profiles_volcano ON profiles(volcano);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, samples, locations, unmatched, cache_hit, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Samples, run.Locations, run.Unmatched, run.CacheHit, run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, samples, locations, unmatched, cache_hit, created_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Samples, &r.Locations, &r.Unmatched, &r.CacheHit, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ReplaceLocations swaps the locations snapshot in one transaction. The
// per-volcano join rows come from splitting combined names, so a query for
// either volcano of a shared location finds it.
func (s *SQLiteStore) ReplaceLocations(ctx context.Context, locations []model.AggregatedLocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace locations")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"location_volcanoes", "locations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, loc := range locations {
		id := uuid.New().String()
		rc, rcNI, mc, err := marshalCounts(loc)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO locations (id, latitude, longitude, sample_ids, volcano, stabilized_km, rock_counts, rock_counts_ni, material_counts)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, loc.Latitude, loc.Longitude, loc.SampleIDs, loc.Volcano, loc.StabilizedKM, rc, rcNI, mc,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert location")
		}
		for _, name := range model.SplitCombinedName(loc.Volcano) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO location_volcanoes (location_id, volcano) VALUES (?, ?)`,
				id, name,
			); err != nil {
				return eris.Wrap(err, "sqlite: insert location volcano")
			}
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace locations")
}

// ReplaceProfiles swaps one bucket's profiles without touching the others.
func (s *SQLiteStore) ReplaceProfiles(ctx context.Context, bucket string, profiles []model.MajorRockProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace profiles")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE bucket = ?`, bucket); err != nil {
		return eris.Wrapf(err, "sqlite: clear profiles %s", bucket)
	}

	for _, p := range profiles {
		rocksJSON, err := marshalRocks(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (bucket, volcano, material, rocks) VALUES (?, ?, ?, ?)`,
			bucket, p.Volcano, string(p.Material), rocksJSON,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert profile %s", p.Volcano)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace profiles")
}

func (s *SQLiteStore) LocationsByVolcano(ctx context.Context, name string) ([]model.AggregatedLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.latitude, l.longitude, l.sample_ids, l.volcano, l.stabilized_km, l.rock_counts, l.rock_counts_ni, l.material_counts
		 FROM locations l
		 JOIN location_volcanoes lv ON lv.location_id = l.id
		 WHERE lv.volcano = ?
		 ORDER BY l.latitude, l.longitude`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: locations for %s", name)
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
	return out, eris.Wrap(rows.Err(), "sqlite: locations iterate")
}

func (s *SQLiteStore) ProfilesByVolcano(ctx context.Context, name string) ([]model.MajorRockProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT volcano, material, rocks FROM profiles WHERE volcano = ? ORDER BY material`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: profiles for %s", name)
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
	return out, eris.Wrap(rows.Err(), "sqlite: profiles iterate")
}

func (s *SQLiteStore) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT bucket FROM profiles ORDER BY bucket`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list buckets")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: buckets iterate")
}

// helpers shared with the postgres variant

func marshalCounts(loc model.AggregatedLocation) (rc, rcNI, mc string, err error) {
	rcJSON, err := json.Marshal(loc.RockCounts)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal rock counts")
	}
	rcNIJSON, err := json.Marshal(loc.RockCountsNoInclusions)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal rock counts without inclusions")
	}
	mcJSON, err := json.Marshal(loc.MaterialCounts)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal material counts")
	}
	return string(rcJSON), string(rcNIJSON), string(mcJSON), nil
}

func marshalRocks(p model.MajorRockProfile) (string, error) {
	rocksJSON, err := json.Marshal(p.Rocks)
	if err != nil {
		return "", eris.Wrapf(err, "store: marshal rocks for %s", p.Volcano)
	}
	return string(rocksJSON), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLocation(row scannable) (model.AggregatedLocation, error) {
	var loc model.AggregatedLocation
	var rc, rcNI, mc string
	if err := row.Scan(&loc.Latitude, &loc.Longitude, &loc.SampleIDs, &loc.Volcano, &loc.StabilizedKM, &rc, &rcNI, &mc); err != nil {
		return loc, eris.Wrap(err, "store: scan location")
	}
	if err := json.Unmarshal([]byte(rc), &loc.RockCounts); err != nil {
		return loc, eris.Wrap(err, "store: unmarshal rock counts")
	}
	if err := json.Unmarshal([]byte(rcNI), &loc.RockCountsNoInclusions); err != nil {
		return loc, eris.Wrap(err, "store: unmarshal rock counts without inclusions")
	}
	if err := json.Unmarshal([]byte(mc), &loc.MaterialCounts); err != nil {
		return loc, eris.Wrap(err, "store: unmarshal material counts")
	}
	return loc, nil
}

func scanProfile(row scannable) (model.MajorRockProfile, error) {
	var p model.MajorRockProfile
	var material, rocks string
	if err := row.Scan(&p.Volcano, &material, &rocks); err != nil {
		return p, eris.Wrap(err, "store: scan profile")
	}
	p.Material = model.Material(material)
	if err := json.Unmarshal([]byte(rocks), &p.Rocks); err != nil {
		return p, eris.Wrap(err, "store: unmarshal rocks")
	}
	return p, nil
}
