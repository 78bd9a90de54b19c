package summarize

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/volcanica/petro-cli/internal/cache"
	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/model"
)

// minSharePct is the qualification threshold: a rock type is "major" only
// if it accounts for at least this share of the group's samples.
const minSharePct = 10.0

// DefaultConcurrency bounds the per-bucket fan-out of SummarizeAll.
const DefaultConcurrency = 4

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithConcurrency sets the bucket fan-out width.
func WithConcurrency(n int) SummarizerOption {
	return func(s *Summarizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Summarizer computes major-rock profiles over the aggregated snapshot.
// Buckets partition the catalog disjointly enough to compute and cache
// independently; within a bucket each (volcano, material) pair is
// independent too.
type Summarizer struct {
	cat         *catalog.Catalog
	buckets     *Buckets
	profiles    cache.ProfileCache
	concurrency int
}

// NewSummarizer creates a Summarizer over the given catalog and bucket
// table, caching per-bucket results in profiles.
func NewSummarizer(cat *catalog.Catalog, buckets *Buckets, profiles cache.ProfileCache, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		cat:         cat,
		buckets:     buckets,
		profiles:    profiles,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// materialTally maps material kind to rock-type counts for one volcano.
type materialTally map[model.Material]map[string]int

// tallyByVolcano folds the aggregated locations into per-volcano material
// tallies. Combined multi-volcano names credit every named volcano.
func tallyByVolcano(agg []model.AggregatedLocation) map[string]materialTally {
	out := make(map[string]materialTally)
	for _, loc := range agg {
		for _, name := range model.SplitCombinedName(loc.Volcano) {
			t, ok := out[name]
			if !ok {
				t = make(materialTally)
				out[name] = t
			}
			for material, counts := range loc.MaterialCounts {
				mc, ok := t[material]
				if !ok {
					mc = make(map[string]int)
					t[material] = mc
				}
				for rock, n := range counts {
					mc[rock] += n
				}
			}
		}
	}
	return out
}

// Summarize computes the profiles for every (volcano, material) pair in one
// bucket. Volcanoes with no samples for a material get an all-sentinel
// profile rather than an error.
func (s *Summarizer) Summarize(bucket Bucket, agg []model.AggregatedLocation) []model.MajorRockProfile {
	tallies := tallyByVolcano(agg)
	coll := collate.New(language.English)

	var out []model.MajorRockProfile
	for _, v := range bucket.Volcanoes(s.cat) {
		for _, material := range model.SummaryMaterials {
			var counts map[string]int
			if t, ok := tallies[v.Name]; ok {
				counts = t[material]
			}
			out = append(out, rankProfile(coll, v.Name, material, counts))
		}
	}
	return out
}

// rankProfile ranks one (volcano, material) group's rock types. The
// denominator is the group's total sample count; the "unnamed" classifier
// label stays in the denominator but never ranks. Ties at equal frequency
// order alphabetically so repeated runs agree.
func rankProfile(coll *collate.Collator, volcano string, material model.Material, counts map[string]int) model.MajorRockProfile {
	p := model.MajorRockProfile{Volcano: volcano, Material: material}

	var total int
	for _, n := range counts {
		total += n
	}

	type entry struct {
		label string
		count int
	}
	var qualified []entry
	for label, n := range counts {
		if label == model.UnnamedLabel {
			continue
		}
		if float64(n)/float64(total) >= minSharePct/100 {
			qualified = append(qualified, entry{label: label, count: n})
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].count != qualified[j].count {
			return qualified[i].count > qualified[j].count
		}
		return coll.CompareString(qualified[i].label, qualified[j].label) < 0
	})

	for i := range model.ProfileSize {
		if i < len(qualified) {
			e := qualified[i]
			p.Rocks[i] = model.RankedRock{
				Label: LabelFor(e.label),
				Count: e.count,
				Share: round1(100 * float64(e.count) / float64(total)),
			}
			continue
		}
		p.Rocks[i] = model.RankedRock{Label: model.NoDataLabel}
	}
	return p
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// SummarizeAll computes (or re-reads) every bucket's profiles. Buckets run
// concurrently; each bucket's result is stored in its own cache artifact,
// so recomputing one bucket never disturbs another. With force false a
// cached bucket is returned as-is.
func (s *Summarizer) SummarizeAll(ctx context.Context, agg []model.AggregatedLocation, force bool) (map[string][]model.MajorRockProfile, error) {
	var (
		mu  sync.Mutex
		out = make(map[string][]model.MajorRockProfile, len(s.buckets.Buckets))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, bucket := range s.buckets.Buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			log := zap.L().With(zap.String("bucket", bucket.ID))

			if !force {
				if cached, err := s.profiles.Load(bucket.ID); err == nil {
					log.Debug("summarize: bucket cache hit", zap.Int("profiles", len(cached)))
					mu.Lock()
					out[bucket.ID] = cached
					mu.Unlock()
					return nil
				}
			}

			profiles := s.Summarize(bucket, agg)
			if err := s.profiles.Store(bucket.ID, profiles); err != nil {
				return err
			}
			log.Info("summarize: bucket computed", zap.Int("profiles", len(profiles)))

			mu.Lock()
			out[bucket.ID] = profiles
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
