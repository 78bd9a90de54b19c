// Package summarize computes ranked major-rock profiles per volcano and
// material, partitioned and cached by tectonic-setting bucket.
package summarize

import (
	_ "embed"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/model"
)

//go:embed buckets.yaml
var bucketsYAML []byte

// Bucket is one named partition of the catalog, defined by tectonic-setting
// prefixes and optional subregion conditions.
type Bucket struct {
	ID                string   `yaml:"id"`
	Settings          []string `yaml:"settings"`
	Subregions        []string `yaml:"subregions"`
	ExcludeSubregions []string `yaml:"exclude_subregions"`
}

// Contains reports whether a volcano belongs to this bucket.
func (b Bucket) Contains(v model.VolcanoEntry) bool {
	var settingOK bool
	for _, s := range b.Settings {
		if strings.HasPrefix(v.TectonicSetting, s) {
			settingOK = true
			break
		}
	}
	if !settingOK {
		return false
	}
	if len(b.Subregions) > 0 && !slices.Contains(b.Subregions, v.Subregion) {
		return false
	}
	return !slices.Contains(b.ExcludeSubregions, v.Subregion)
}

// Buckets is the full static bucket-definition table.
type Buckets struct {
	Buckets []Bucket `yaml:"buckets"`
}

// LoadBuckets parses the embedded bucket-definition table.
func LoadBuckets() (*Buckets, error) {
	var b Buckets
	if err := yaml.Unmarshal(bucketsYAML, &b); err != nil {
		return nil, eris.Wrap(err, "summarize: parse bucket definitions")
	}
	if len(b.Buckets) == 0 {
		return nil, eris.New("summarize: no buckets defined")
	}
	return &b, nil
}

// IDs returns the bucket identifiers in definition order.
func (b *Buckets) IDs() []string {
	ids := make([]string, len(b.Buckets))
	for i, bk := range b.Buckets {
		ids[i] = bk.ID
	}
	return ids
}

// ByID looks up one bucket definition.
func (b *Buckets) ByID(id string) (Bucket, bool) {
	for _, bk := range b.Buckets {
		if bk.ID == id {
			return bk, true
		}
	}
	return Bucket{}, false
}

// Validate checks every setting label referenced by a bucket against the
// catalog. A label that matches no catalog volcano is a static-data
// mismatch and therefore a fatal configuration error, not a per-record
// problem.
func (b *Buckets) Validate(cat *catalog.Catalog) error {
	settings := cat.Settings()
	for _, bk := range b.Buckets {
		for _, s := range bk.Settings {
			found := false
			for _, cs := range settings {
				if strings.HasPrefix(cs, s) {
					found = true
					break
				}
			}
			if !found {
				return eris.Errorf("summarize: bucket %q references tectonic setting %q absent from catalog", bk.ID, s)
			}
		}
	}
	return nil
}

// Volcanoes returns the catalog volcanoes belonging to a bucket, in
// catalog order.
func (b Bucket) Volcanoes(cat *catalog.Catalog) []model.VolcanoEntry {
	var out []model.VolcanoEntry
	for _, v := range cat.Entries() {
		if b.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}
