// Package aggregate consolidates cleaned samples into one row per distinct
// sampled location.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/model"
)

// maxDisplayIDs is how many distinct sample identifiers are kept verbatim
// before the remainder collapses into a "+N" marker.
const maxDisplayIDs = 3

// ConsolidateIDs builds the display string for a group's sample
// identifiers: up to three distinct IDs in first-seen order, space-joined,
// with a "+N" suffix counting the overflow.
func ConsolidateIDs(ids []string) string {
	var distinct []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		distinct = append(distinct, id)
	}

	if len(distinct) <= maxDisplayIDs {
		return strings.Join(distinct, " ")
	}
	kept := strings.Join(distinct[:maxDisplayIDs], " ")
	return fmt.Sprintf("%s +%d", kept, len(distinct)-maxDisplayIDs)
}

// Aggregate groups samples by exact coordinate equality and builds one
// AggregatedLocation per matched coordinate. Samples whose coordinate has
// no match result are dropped and counted. The output is sorted by
// (latitude, longitude) so repeated runs over the same input are
// byte-identical.
func Aggregate(samples []model.SampleRecord, matches map[model.CoordKey]model.MatchResult) []model.AggregatedLocation {
	type group struct {
		ids     []string
		samples []model.SampleRecord
	}

	groups := make(map[model.CoordKey]*group)
	var order []model.CoordKey
	var dropped int

	for _, s := range samples {
		k := model.Key(s.Latitude, s.Longitude)
		if _, ok := matches[k]; !ok {
			dropped++
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.ids = append(g.ids, s.ID)
		g.samples = append(g.samples, s)
	}

	if dropped > 0 {
		zap.L().Info("aggregate: dropped unmatched samples", zap.Int("samples", dropped))
	}

	out := make([]model.AggregatedLocation, 0, len(order))
	for _, k := range order {
		g := groups[k]
		m := matches[k]

		loc := model.AggregatedLocation{
			Latitude:               k.Lat,
			Longitude:              k.Lon,
			SampleIDs:              ConsolidateIDs(g.ids),
			Volcano:                m.CombinedName(),
			StabilizedKM:           m.RadiusKM,
			RockCounts:             make(map[string]int),
			RockCountsNoInclusions: make(map[string]int),
			MaterialCounts:         make(map[model.Material]map[string]int),
		}
		for _, s := range g.samples {
			loc.RockCounts[s.RockType]++
			if s.Material != model.MaterialInclusion {
				loc.RockCountsNoInclusions[s.RockType]++
			}
			mc, ok := loc.MaterialCounts[s.Material]
			if !ok {
				mc = make(map[string]int)
				loc.MaterialCounts[s.Material] = mc
			}
			mc[s.RockType]++
		}
		out = append(out, loc)
	}

	out = dedupe(out)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})

	return out
}

// dedupe removes rows identical on every retained column. Grouping is
// already keyed by coordinate, so this only fires when the same export was
// ingested twice under distinct coordinate keys that collapsed equal.
func dedupe(locs []model.AggregatedLocation) []model.AggregatedLocation {
	seen := make(map[string]bool, len(locs))
	out := locs[:0]
	for _, l := range locs {
		sig := fmt.Sprintf("%v|%v|%s|%s|%v|%v|%v",
			l.Latitude, l.Longitude, l.SampleIDs, l.Volcano, l.StabilizedKM,
			sortedCounts(l.RockCounts), sortedCounts(l.RockCountsNoInclusions))
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, l)
	}
	return out
}

func sortedCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%d,", k, m[k])
	}
	return sb.String()
}
