package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanica/petro-cli/internal/cache"
	"github.com/volcanica/petro-cli/internal/model"
	"github.com/volcanica/petro-cli/internal/store"
)

// countingMatcher records MatchAll invocations and matches everything to a
// single fixed volcano.
type countingMatcher struct {
	calls     int
	unmatched int64
}

func (m *countingMatcher) MatchAll(_ context.Context, samples []model.SampleRecord) (map[model.CoordKey]model.MatchResult, int64, error) {
	m.calls++
	out := make(map[model.CoordKey]model.MatchResult)
	for _, s := range samples {
		k := model.Key(s.Latitude, s.Longitude)
		out[k] = model.MatchResult{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Volcanoes: []string{"Etna"},
			RadiusKM:  10,
		}
	}
	return out, m.unmatched, nil
}

// recordingStore captures the snapshot and run writes.
type recordingStore struct {
	store.Store
	locations []model.AggregatedLocation
	runs      []store.Run
}

func (s *recordingStore) ReplaceLocations(_ context.Context, locs []model.AggregatedLocation) error {
	s.locations = locs
	return nil
}

func (s *recordingStore) RecordRun(_ context.Context, run store.Run) error {
	s.runs = append(s.runs, run)
	return nil
}

func testSamples() []model.SampleRecord {
	return []model.SampleRecord{
		{ID: "ET-01", Latitude: 37.75, Longitude: 15.00, Material: model.MaterialWholeRock, RockType: "BASALT"},
		{ID: "ET-02", Latitude: 37.75, Longitude: 15.00, Material: model.MaterialWholeRock, RockType: "BASALT"},
	}
}

func TestPipelineRun_ComputesAndCaches(t *testing.T) {
	matcher := &countingMatcher{unmatched: 3}
	aggCache := cache.NewMemoryAggregateCache()
	st := &recordingStore{}
	p := New(matcher, aggCache, st)

	res, err := p.Run(context.Background(), testSamples(), false)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Samples)
	assert.Equal(t, 1, res.Locations)
	assert.Equal(t, 3, res.Unmatched)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 1, matcher.calls)

	cached, err := aggCache.Load()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "Etna", cached[0].Volcano)

	require.Len(t, st.locations, 1)
	require.Len(t, st.runs, 1)
	assert.Equal(t, res.RunID, st.runs[0].ID)
}

func TestPipelineRun_CacheHitSkipsMatching(t *testing.T) {
	matcher := &countingMatcher{}
	aggCache := cache.NewMemoryAggregateCache()
	st := &recordingStore{}
	p := New(matcher, aggCache, st)

	_, err := p.Run(context.Background(), testSamples(), false)
	require.NoError(t, err)
	require.Equal(t, 1, matcher.calls)

	res, err := p.Run(context.Background(), testSamples(), false)
	require.NoError(t, err)

	assert.True(t, res.CacheHit)
	assert.Equal(t, 1, res.Locations)
	assert.Equal(t, 1, matcher.calls, "matcher must not run on a cache hit")

	// The cached snapshot is still re-published.
	require.Len(t, st.locations, 1)
	assert.Len(t, st.runs, 2)
	assert.True(t, st.runs[1].CacheHit)
}

func TestPipelineRun_ForceRecomputes(t *testing.T) {
	matcher := &countingMatcher{}
	aggCache := cache.NewMemoryAggregateCache()
	p := New(matcher, aggCache, nil)

	_, err := p.Run(context.Background(), testSamples(), false)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), testSamples(), true)
	require.NoError(t, err)

	assert.False(t, res.CacheHit)
	assert.Equal(t, 2, matcher.calls)
}

func TestPipelineRun_NilStore(t *testing.T) {
	p := New(&countingMatcher{}, cache.NewMemoryAggregateCache(), nil)

	res, err := p.Run(context.Background(), testSamples(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Locations)
}
