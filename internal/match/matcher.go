package match

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/model"
)

// Default search radii in kilometers. The initial radius trades recall for
// precision: catalogs cluster named vents within a few kilometers, so the
// radius shrinks until a single candidate remains or the floor is reached.
const (
	DefaultInitialRadiusKM = 50.0
	DefaultFloorRadiusKM   = 5.0
	DefaultStepKM          = 1.0
	DefaultConcurrency     = 8
)

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithRadii overrides the initial radius, floor radius and shrink step.
func WithRadii(initialKM, floorKM, stepKM float64) MatcherOption {
	return func(m *Matcher) {
		m.initialKM = initialKM
		m.floorKM = floorKM
		m.stepKM = stepKM
	}
}

// WithConcurrency sets the fan-out width for MatchAll.
func WithConcurrency(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// Matcher resolves sample coordinates against a read-only volcano catalog.
// Match is a pure function over the catalog and a coordinate, so a single
// Matcher is safe for concurrent use.
type Matcher struct {
	cat         *catalog.Catalog
	initialKM   float64
	floorKM     float64
	stepKM      float64
	concurrency int
}

// NewMatcher creates a Matcher over the given catalog.
func NewMatcher(cat *catalog.Catalog, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		cat:         cat,
		initialKM:   DefaultInitialRadiusKM,
		floorKM:     DefaultFloorRadiusKM,
		stepKM:      DefaultStepKM,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// candidate pairs a catalog volcano name with its distance from the sample.
type candidate struct {
	name string
	km   float64
}

// Match finds the catalog volcanoes nearest the coordinate. Starting from
// the initial radius, the candidate set is re-filtered at progressively
// smaller radii until exactly one volcano remains, the floor is reached, or
// a further shrink would lose every remaining candidate. At the floor all
// remaining names are retained.
func (m *Matcher) Match(lat, lon float64) model.MatchResult {
	var all []candidate
	for _, v := range m.cat.Entries() {
		d := HaversineKM(lat, lon, v.Latitude, v.Longitude)
		if d <= m.initialKM {
			all = append(all, candidate{name: v.Name, km: d})
		}
	}

	result := model.MatchResult{Latitude: lat, Longitude: lon, RadiusKM: m.initialKM}
	if len(all) == 0 {
		return result
	}

	radius := m.initialKM
	cands := all
	for len(cands) > 1 && radius > m.floorKM {
		next := within(cands, radius-m.stepKM)
		if len(next) == 0 {
			break
		}
		radius -= m.stepKM
		cands = next
	}

	result.RadiusKM = radius
	result.Volcanoes = make([]string, len(cands))
	for i, c := range cands {
		result.Volcanoes[i] = c.name
	}
	return result
}

func within(cands []candidate, radiusKM float64) []candidate {
	var out []candidate
	for _, c := range cands {
		if c.km <= radiusKM {
			out = append(out, c)
		}
	}
	return out
}

// MatchAll matches every distinct sample coordinate concurrently. It
// returns one MatchResult per matched coordinate and the count of
// coordinates with no volcano within the initial radius.
func (m *Matcher) MatchAll(ctx context.Context, samples []model.SampleRecord) (map[model.CoordKey]model.MatchResult, int64, error) {
	coords := make([]model.CoordKey, 0)
	seen := make(map[model.CoordKey]bool)
	for _, s := range samples {
		k := model.Key(s.Latitude, s.Longitude)
		if seen[k] {
			continue
		}
		seen[k] = true
		coords = append(coords, k)
	}

	var (
		mu        sync.Mutex
		results   = make(map[model.CoordKey]model.MatchResult, len(coords))
		unmatched atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, k := range coords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := m.Match(k.Lat, k.Lon)
			if !r.Matched() {
				unmatched.Add(1)
				return nil
			}
			mu.Lock()
			results[k] = r
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	zap.L().Info("match: coordinates resolved",
		zap.Int("coordinates", len(coords)),
		zap.Int("matched", len(results)),
		zap.Int64("unmatched", unmatched.Load()),
	)
	return results, unmatched.Load(), nil
}
