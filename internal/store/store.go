// Package store is the query surface behind the serve API. The pipeline
// replaces its tables wholesale on every run; readers only ever see a
// complete snapshot.
package store

import (
	"context"
	"time"

	"github.com/volcanica/petro-cli/internal/model"
)

// Run records one pipeline execution.
type Run struct {
	ID        string    `json:"id"`
	Samples   int       `json:"samples"`
	Locations int       `json:"locations"`
	Unmatched int       `json:"unmatched"`
	CacheHit  bool      `json:"cache_hit"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for the aggregation pipeline.
type Store interface {
	// Runs
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Snapshot writes (wholesale replace)
	ReplaceLocations(ctx context.Context, locations []model.AggregatedLocation) error
	ReplaceProfiles(ctx context.Context, bucket string, profiles []model.MajorRockProfile) error

	// Queries
	LocationsByVolcano(ctx context.Context, name string) ([]model.AggregatedLocation, error)
	ProfilesByVolcano(ctx context.Context, name string) ([]model.MajorRockProfile, error)
	Buckets(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
