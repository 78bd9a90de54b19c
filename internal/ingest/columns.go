// Package ingest reads laboratory sample exports (worksheet or delimited
// text) into cleaned SampleRecords. Source catalogs disagree on column
// naming, so headers are remapped to a canonical vocabulary before parsing.
package ingest

import (
	"strings"

	"github.com/volcanica/petro-cli/internal/model"
)

// Canonical column roles.
const (
	colID       = "sample_id"
	colMaterial = "material"
	colRock     = "rock_type"
	colLat      = "latitude"
	colLon      = "longitude"
)

// headerAliases maps source-catalog header spellings to canonical roles.
var headerAliases = map[string]string{
	"SAMPLE":      colID,
	"SAMPLE NAME": colID,
	"SAMPLE_ID":   colID,
	"SAMPLE ID":   colID,

	"MATERIAL":    colMaterial,
	"SAMPLE TYPE": colMaterial,

	"ROCK":      colRock,
	"ROCK TYPE": colRock,
	"ROCK_TYPE": colRock,
	"ROCK NAME": colRock,

	"LAT":          colLat,
	"LATITUDE":     colLat,
	"LATITUDE (N)": colLat,

	"LON":           colLon,
	"LONG":          colLon,
	"LONGITUDE":     colLon,
	"LONGITUDE (E)": colLon,
}

// oxideColumns is the canonical oxide vocabulary. Any other unrecognized
// header is ignored.
var oxideColumns = map[string]bool{
	"SIO2": true, "TIO2": true, "AL2O3": true,
	"FE2O3": true, "FEO": true, "FEOT": true,
	"MNO": true, "MGO": true, "CAO": true,
	"NA2O": true, "K2O": true, "P2O5": true,
	"LOI": true,
}

// canonicalColumn classifies a raw header cell: a known role, an oxide
// name, or "" for ignored columns.
func canonicalColumn(raw string) string {
	h := strings.ToUpper(strings.TrimSpace(raw))
	if role, ok := headerAliases[h]; ok {
		return role
	}
	if oxideColumns[h] {
		return h
	}
	return ""
}

// materialAliases normalizes material-kind spellings.
var materialAliases = map[string]model.Material{
	"WR":             model.MaterialWholeRock,
	"WHOLE ROCK":     model.MaterialWholeRock,
	"WHOLE-ROCK":     model.MaterialWholeRock,
	"GL":             model.MaterialGlass,
	"GLASS":          model.MaterialGlass,
	"VOLCANIC GLASS": model.MaterialGlass,
	"INC":            model.MaterialInclusion,
	"INCLUSION":      model.MaterialInclusion,
	"MIN":            model.MaterialMineral,
	"MINERAL":        model.MaterialMineral,
}

// parseMaterial normalizes a material cell, defaulting to whole-rock for
// exports that omit the column.
func parseMaterial(raw string) model.Material {
	if raw == "" {
		return model.MaterialWholeRock
	}
	if m, ok := materialAliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return m
	}
	return model.Material(strings.ToLower(strings.TrimSpace(raw)))
}
