// Package model defines the core data types shared across the pipeline.
package model

import "strings"

// Material identifies the kind of analyzed sample material.
type Material string

// Known material kinds. Mineral analyses are ingested but excluded from
// major-rock summaries.
const (
	MaterialWholeRock Material = "whole-rock"
	MaterialGlass     Material = "glass"
	MaterialInclusion Material = "inclusion"
	MaterialMineral   Material = "mineral"
)

// SummaryMaterials are the material kinds that receive a major-rock profile.
var SummaryMaterials = []Material{MaterialWholeRock, MaterialGlass, MaterialInclusion}

// NoDataLabel is the sentinel rock label used to pad profiles with fewer
// than five qualifying rock types.
const NoDataLabel = "no data"

// UnnamedLabel is the classifier output for samples whose composition could
// not be assigned a rock name. It is excluded from rankings.
const UnnamedLabel = "UNNAMED"

// VolcanoSeparator joins the names of volcanoes that could not be resolved
// apart at the minimum search radius.
const VolcanoSeparator = "; "

// SampleRecord is one laboratory analysis after cleaning. Immutable once
// built; discarded after aggregation.
type SampleRecord struct {
	ID        string
	Latitude  float64
	Longitude float64
	Material  Material
	RockType  string
	Oxides    map[string]float64
}

// VolcanoEntry is one volcano from the reference catalog. Read-only.
type VolcanoEntry struct {
	Name            string  `csv:"volcano_name" json:"volcano_name"`
	Latitude        float64 `csv:"latitude" json:"latitude"`
	Longitude       float64 `csv:"longitude" json:"longitude"`
	TectonicSetting string  `csv:"tectonic_setting" json:"tectonic_setting"`
	Subregion       string  `csv:"subregion" json:"subregion"`
}

// CoordKey identifies a sampled location by its exact coordinate pair.
// Exact float equality is intentional: upstream binning produces identical
// coordinates for samples taken at the same site.
type CoordKey struct {
	Lat float64
	Lon float64
}

// Key returns the CoordKey for a coordinate pair.
func Key(lat, lon float64) CoordKey {
	return CoordKey{Lat: lat, Lon: lon}
}

// MatchResult associates one sample coordinate with the catalog volcanoes
// found within the stabilization radius. An empty Volcanoes slice means the
// coordinate is unmatched.
type MatchResult struct {
	Latitude  float64
	Longitude float64
	Volcanoes []string
	RadiusKM  float64
}

// Matched reports whether at least one volcano was found.
func (m MatchResult) Matched() bool {
	return len(m.Volcanoes) > 0
}

// CombinedName returns the volcano names joined into a single display
// string. Multi-volcano results keep every remaining candidate rather than
// choosing one arbitrarily.
func (m MatchResult) CombinedName() string {
	return strings.Join(m.Volcanoes, VolcanoSeparator)
}

// SplitCombinedName splits a combined volcano name back into its parts.
func SplitCombinedName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, VolcanoSeparator)
}

// AggregatedLocation is one distinct coordinate pair with its consolidated
// samples. Rebuilt wholesale on every aggregation run.
type AggregatedLocation struct {
	Latitude  float64
	Longitude float64
	// SampleIDs is the consolidated display string: up to three distinct
	// identifiers, then a "+N" overflow marker.
	SampleIDs string
	// Volcano is the combined name of the matched volcano(es).
	Volcano string
	// StabilizedKM is the radius at which the match stabilized.
	StabilizedKM float64
	// RockCounts tallies rock types across all materials.
	RockCounts map[string]int
	// RockCountsNoInclusions tallies rock types excluding inclusion samples.
	RockCountsNoInclusions map[string]int
	// MaterialCounts tallies rock types per material kind, feeding the
	// per-material major-rock summaries.
	MaterialCounts map[Material]map[string]int
}

// RankedRock is one entry in a major-rock profile.
type RankedRock struct {
	Label string
	Count int
	// Share is the percentage of the group total, rounded to one decimal.
	Share float64
}

// ProfileSize is the fixed length of a major-rock profile.
const ProfileSize = 5

// MajorRockProfile ranks the dominant rock types for one (volcano, material)
// pair. Always exactly ProfileSize entries, padded with NoDataLabel.
type MajorRockProfile struct {
	Volcano  string
	Material Material
	Rocks    [ProfileSize]RankedRock
}
