// Package catalog loads the authoritative volcano reference list. The
// catalog is read-only after construction and is passed explicitly to every
// component that needs it.
package catalog

import (
	"sort"

	"github.com/volcanica/petro-cli/internal/model"
)

// Catalog holds the volcano reference list.
type Catalog struct {
	entries []model.VolcanoEntry
	byName  map[string]int
}

// New builds a catalog from entries. Later duplicates of a name shadow
// earlier ones in the name index; the entry order is preserved.
func New(entries []model.VolcanoEntry) *Catalog {
	c := &Catalog{
		entries: entries,
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		c.byName[e.Name] = i
	}
	return c
}

// Entries returns all catalog volcanoes in load order. Callers must not
// mutate the returned slice.
func (c *Catalog) Entries() []model.VolcanoEntry {
	return c.entries
}

// Len returns the number of catalog volcanoes.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// ByName looks up a volcano by exact name.
func (c *Catalog) ByName(name string) (model.VolcanoEntry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return model.VolcanoEntry{}, false
	}
	return c.entries[i], true
}

// Settings returns the sorted distinct tectonic-setting labels present in
// the catalog.
func (c *Catalog) Settings() []string {
	return c.distinct(func(e model.VolcanoEntry) string { return e.TectonicSetting })
}

// Subregions returns the sorted distinct subregion labels present in the
// catalog.
func (c *Catalog) Subregions() []string {
	return c.distinct(func(e model.VolcanoEntry) string { return e.Subregion })
}

func (c *Catalog) distinct(field func(model.VolcanoEntry) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.entries {
		v := field(e)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
