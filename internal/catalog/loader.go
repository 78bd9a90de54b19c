package catalog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/model"
)

// Load reads a catalog file, dispatching on extension (.csv or .shp).
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".shp":
		return LoadShapefile(path)
	default:
		return nil, eris.Errorf("catalog: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadCSV reads a volcano catalog from a CSV file with columns
// volcano_name, latitude, longitude, tectonic_setting, subregion.
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read csv header")
	}

	var entries []model.VolcanoEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, eris.Wrap(err, "catalog: decode csv")
	}

	zap.L().Info("catalog: loaded csv",
		zap.String("path", path),
		zap.Int("volcanoes", len(entries)),
	)
	return New(entries), nil
}

// Shapefile attribute names accepted for each catalog column. Catalog
// distributions disagree on field naming, so each column tries a list.
var shapefileFields = map[string][]string{
	"name":      {"VOLCANO", "VOLC_NAME", "NAME"},
	"setting":   {"TECTONIC", "TECT_SET", "SETTING"},
	"subregion": {"SUBREGION", "SUBREG"},
}

// LoadShapefile reads a volcano catalog distributed as a point shapefile.
// Coordinates come from the point geometry; name, tectonic setting and
// subregion come from attribute fields.
func LoadShapefile(path string) (*Catalog, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, shapefileFields["name"])
	settingIdx := fieldIndex(reader, shapefileFields["setting"])
	subregionIdx := fieldIndex(reader, shapefileFields["subregion"])
	if nameIdx < 0 {
		return nil, eris.New("catalog: volcano name field not found in shapefile")
	}

	var entries []model.VolcanoEntry
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		e := model.VolcanoEntry{
			Name:      strings.TrimSpace(reader.Attribute(nameIdx)),
			Latitude:  pt.Y,
			Longitude: pt.X,
		}
		if e.Name == "" {
			skipped++
			continue
		}
		if settingIdx >= 0 {
			e.TectonicSetting = strings.TrimSpace(reader.Attribute(settingIdx))
		}
		if subregionIdx >= 0 {
			e.Subregion = strings.TrimSpace(reader.Attribute(subregionIdx))
		}
		entries = append(entries, e)
	}

	if skipped > 0 {
		zap.L().Debug("catalog: skipped shapefile records", zap.Int("skipped", skipped))
	}
	zap.L().Info("catalog: loaded shapefile",
		zap.String("path", path),
		zap.Int("volcanoes", len(entries)),
	)
	return New(entries), nil
}

// fieldIndex returns the index of the first matching field name, or -1.
func fieldIndex(reader *shp.Reader, names []string) int {
	for i, f := range reader.Fields() {
		fn := strings.TrimRight(f.String(), "\x00")
		for _, name := range names {
			if strings.EqualFold(fn, name) {
				return i
			}
		}
	}
	return -1
}
