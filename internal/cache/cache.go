// Package cache persists pipeline artifacts so that expensive matching and
// summarization steps can be skipped on repeated runs. Caching is purely a
// performance optimization: every artifact can be re-derived from inputs,
// so a missing or corrupt artifact is a miss, never an error.
package cache

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/volcanica/petro-cli/internal/model"
)

// ErrMiss is returned by Load when no valid artifact exists. Callers check
// it with eris.Is and fall back to full recomputation.
var ErrMiss = eris.New("cache: miss")

// AggregateCache stores the full matched+aggregated snapshot.
type AggregateCache interface {
	Load() ([]model.AggregatedLocation, error)
	Store(locs []model.AggregatedLocation) error
	Invalidate() error
}

// ProfileCache stores major-rock profiles partitioned by tectonic bucket.
// Buckets are isolated artifacts: storing one never disturbs another.
type ProfileCache interface {
	Load(bucket string) ([]model.MajorRockProfile, error)
	Store(bucket string, profiles []model.MajorRockProfile) error
	Invalidate(bucket string) error
}

// writeAtomic writes an artifact to a temporary file in the target
// directory and renames it into place, so readers never observe a partial
// write and a killed run leaves the previous valid artifact intact.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create dir")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "cache: rename into place")
	}
	return nil
}

// removeIfExists deletes an artifact, treating absence as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "cache: remove %s", path)
	}
	return nil
}
