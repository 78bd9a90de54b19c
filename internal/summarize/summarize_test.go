package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanica/petro-cli/internal/cache"
	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/model"
)

func testBucket(id string, settings ...string) Bucket {
	return Bucket{ID: id, Settings: settings}
}

func subductionCatalog(names ...string) *catalog.Catalog {
	entries := make([]model.VolcanoEntry, len(names))
	for i, n := range names {
		entries[i] = model.VolcanoEntry{
			Name:            n,
			TectonicSetting: "Subduction zone / Continental crust (>25 km)",
			Subregion:       "Italy",
		}
	}
	return catalog.New(entries)
}

func locFor(volcano string, material model.Material, counts map[string]int) model.AggregatedLocation {
	return model.AggregatedLocation{
		Volcano:        volcano,
		MaterialCounts: map[model.Material]map[string]int{material: counts},
	}
}

func profileFor(t *testing.T, profiles []model.MajorRockProfile, volcano string, material model.Material) model.MajorRockProfile {
	t.Helper()
	for _, p := range profiles {
		if p.Volcano == volcano && p.Material == material {
			return p
		}
	}
	t.Fatalf("no profile for %s/%s", volcano, material)
	return model.MajorRockProfile{}
}

func TestSummarize_RanksByShare(t *testing.T) {
	// Two BASALT and one ANDESITE at the same coordinate: 67% vs 33%,
	// both at or above 10%, padded to five with sentinels.
	cat := subductionCatalog("Etna")
	bucket := testBucket("subduction-continental", "Subduction zone / Continental crust")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"BASALT": 2, "ANDESITE": 1}),
	}

	profiles := s.Summarize(bucket, agg)
	require.Len(t, profiles, len(model.SummaryMaterials))

	wr := profileFor(t, profiles, "Etna", model.MaterialWholeRock)
	assert.Equal(t, model.RankedRock{Label: "Basalt", Count: 2, Share: 66.7}, wr.Rocks[0])
	assert.Equal(t, model.RankedRock{Label: "Andesite", Count: 1, Share: 33.3}, wr.Rocks[1])
	for i := 2; i < model.ProfileSize; i++ {
		assert.Equal(t, model.RankedRock{Label: model.NoDataLabel}, wr.Rocks[i])
	}
}

func TestSummarize_ThresholdFiltersMinorRocks(t *testing.T) {
	cat := subductionCatalog("Etna")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	// DACITE is 1/20 = 5%, below the 10% qualification threshold.
	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"BASALT": 15, "ANDESITE": 4, "DACITE": 1}),
	}

	wr := profileFor(t, s.Summarize(bucket, agg), "Etna", model.MaterialWholeRock)
	assert.Equal(t, "Basalt", wr.Rocks[0].Label)
	assert.Equal(t, 75.0, wr.Rocks[0].Share)
	assert.Equal(t, "Andesite", wr.Rocks[1].Label)
	assert.Equal(t, 20.0, wr.Rocks[1].Share)
	assert.Equal(t, model.NoDataLabel, wr.Rocks[2].Label)

	for _, r := range wr.Rocks {
		if r.Label != model.NoDataLabel {
			assert.GreaterOrEqual(t, r.Share, 10.0)
		}
	}
}

func TestSummarize_UnnamedStaysInDenominator(t *testing.T) {
	cat := subductionCatalog("Etna")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"BASALT": 5, model.UnnamedLabel: 5}),
	}

	wr := profileFor(t, s.Summarize(bucket, agg), "Etna", model.MaterialWholeRock)
	assert.Equal(t, "Basalt", wr.Rocks[0].Label)
	assert.Equal(t, 50.0, wr.Rocks[0].Share)
	// The unnamed label never ranks.
	for _, r := range wr.Rocks[1:] {
		assert.Equal(t, model.NoDataLabel, r.Label)
	}
}

func TestSummarize_TieBreaksAlphabetically(t *testing.T) {
	cat := subductionCatalog("Etna")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"TRACHYTE": 3, "DACITE": 3, "BASALT": 3}),
	}

	wr := profileFor(t, s.Summarize(bucket, agg), "Etna", model.MaterialWholeRock)
	assert.Equal(t, "Basalt", wr.Rocks[0].Label)
	assert.Equal(t, "Dacite", wr.Rocks[1].Label)
	assert.Equal(t, "Trachyte", wr.Rocks[2].Label)
}

func TestSummarize_KeepsAtMostFive(t *testing.T) {
	cat := subductionCatalog("Etna")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	// Seven rock types at ~14% each: only the top five survive.
	counts := map[string]int{
		"BASALT": 7, "ANDESITE": 6, "DACITE": 5, "RHYOLITE": 4,
		"TRACHYTE": 4, "PHONOLITE": 4, "TEPHRITE": 4,
	}
	agg := []model.AggregatedLocation{locFor("Etna", model.MaterialWholeRock, counts)}

	wr := profileFor(t, s.Summarize(bucket, agg), "Etna", model.MaterialWholeRock)
	labels := make([]string, 0, model.ProfileSize)
	for _, r := range wr.Rocks {
		assert.NotEqual(t, model.NoDataLabel, r.Label)
		labels = append(labels, r.Label)
	}
	// Equal counts order alphabetically: Phonolite, Rhyolite, Tephrite, Trachyte.
	assert.Equal(t, []string{"Basalt", "Andesite", "Dacite", "Phonolite", "Rhyolite"}, labels)
}

func TestSummarize_NoSamplesGivesSentinelProfile(t *testing.T) {
	cat := subductionCatalog("Etna", "Vulcano")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"BASALT": 1}),
	}

	profiles := s.Summarize(bucket, agg)
	require.Len(t, profiles, 2*len(model.SummaryMaterials))

	glass := profileFor(t, profiles, "Vulcano", model.MaterialGlass)
	for _, r := range glass.Rocks {
		assert.Equal(t, model.RankedRock{Label: model.NoDataLabel}, r)
	}
}

func TestSummarize_CombinedNameCreditsEveryVolcano(t *testing.T) {
	cat := subductionCatalog("North Vent", "South Vent")
	bucket := testBucket("subduction-continental", "Subduction zone")
	s := NewSummarizer(cat, &Buckets{Buckets: []Bucket{bucket}}, cache.NewMemoryProfileCache())

	agg := []model.AggregatedLocation{
		locFor("North Vent; South Vent", model.MaterialGlass, map[string]int{"RHYOLITE": 4}),
	}

	profiles := s.Summarize(bucket, agg)
	for _, name := range []string{"North Vent", "South Vent"} {
		p := profileFor(t, profiles, name, model.MaterialGlass)
		assert.Equal(t, "Rhyolite", p.Rocks[0].Label)
		assert.Equal(t, 4, p.Rocks[0].Count)
	}
}

func TestSummarizeAll_CachesPerBucket(t *testing.T) {
	entries := []model.VolcanoEntry{
		{Name: "Etna", TectonicSetting: "Subduction zone / Continental crust (>25 km)", Subregion: "Italy"},
		{Name: "Krafla", TectonicSetting: "Rift zone / Oceanic crust (<15 km)", Subregion: "Iceland"},
	}
	cat := catalog.New(entries)
	buckets := &Buckets{Buckets: []Bucket{
		testBucket("subduction-continental", "Subduction zone"),
		{ID: "iceland", Settings: []string{"Rift zone"}, Subregions: []string{"Iceland"}},
	}}
	pc := cache.NewMemoryProfileCache()
	s := NewSummarizer(cat, buckets, pc, WithConcurrency(2))

	agg := []model.AggregatedLocation{
		locFor("Etna", model.MaterialWholeRock, map[string]int{"BASALT": 3}),
		locFor("Krafla", model.MaterialWholeRock, map[string]int{"BASALT": 2}),
	}

	out, err := s.SummarizeAll(context.Background(), agg, false)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Both buckets are now cached.
	for _, id := range []string{"subduction-continental", "iceland"} {
		cached, err := pc.Load(id)
		require.NoError(t, err)
		assert.Equal(t, out[id], cached)
	}

	// A second run without force re-reads the caches.
	again, err := s.SummarizeAll(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	// Forcing recomputation over empty input replaces the artifacts.
	forced, err := s.SummarizeAll(context.Background(), nil, true)
	require.NoError(t, err)
	etna := profileFor(t, forced["subduction-continental"], "Etna", model.MaterialWholeRock)
	assert.Equal(t, model.NoDataLabel, etna.Rocks[0].Label)
}

func TestLoadBuckets(t *testing.T) {
	b, err := LoadBuckets()
	require.NoError(t, err)
	assert.NotEmpty(t, b.Buckets)
	assert.Contains(t, b.IDs(), "subduction-continental")

	_, ok := b.ByID("iceland")
	assert.True(t, ok)
	_, ok = b.ByID("nope")
	assert.False(t, ok)
}

func TestBuckets_Validate(t *testing.T) {
	cat := catalog.New([]model.VolcanoEntry{
		{Name: "Etna", TectonicSetting: "Subduction zone / Continental crust (>25 km)"},
	})

	ok := &Buckets{Buckets: []Bucket{testBucket("subduction-continental", "Subduction zone / Continental crust")}}
	assert.NoError(t, ok.Validate(cat))

	bad := &Buckets{Buckets: []Bucket{testBucket("rift", "Rift zone / Continental crust")}}
	err := bad.Validate(cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rift")
}

func TestBucket_Contains(t *testing.T) {
	iceland := Bucket{ID: "iceland", Settings: []string{"Rift zone"}, Subregions: []string{"Iceland"}}
	rift := Bucket{ID: "rift", Settings: []string{"Rift zone"}, ExcludeSubregions: []string{"Iceland"}}

	krafla := model.VolcanoEntry{Name: "Krafla", TectonicSetting: "Rift zone / Oceanic crust (<15 km)", Subregion: "Iceland"}
	erta := model.VolcanoEntry{Name: "Erta Ale", TectonicSetting: "Rift zone / Continental crust (>25 km)", Subregion: "Africa"}

	assert.True(t, iceland.Contains(krafla))
	assert.False(t, iceland.Contains(erta))
	assert.False(t, rift.Contains(krafla))
	assert.True(t, rift.Contains(erta))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Basaltic Andesite", LabelFor("BASALTIC ANDESITE"))
	assert.Equal(t, "WEIRDITE", LabelFor("WEIRDITE"))
}
