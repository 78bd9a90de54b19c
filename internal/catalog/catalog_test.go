package catalog

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanica/petro-cli/internal/model"
)

const catalogCSV = `volcano_name,latitude,longitude,tectonic_setting,subregion
Etna,37.748,14.999,Subduction zone / Continental crust (>25 km),Italy
Krafla,65.715,-16.728,Rift zone / Oceanic crust (<15 km),Iceland
Mauna Loa,19.475,-155.608,Intraplate / Oceanic crust (<15 km),Hawaii
`

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	cat, err := LoadCSV(writeTempCSV(t, catalogCSV))
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	etna, ok := cat.ByName("Etna")
	require.True(t, ok)
	assert.InDelta(t, 37.748, etna.Latitude, 1e-9)
	assert.InDelta(t, 14.999, etna.Longitude, 1e-9)
	assert.Equal(t, "Subduction zone / Continental crust (>25 km)", etna.TectonicSetting)
	assert.Equal(t, "Italy", etna.Subregion)

	_, ok = cat.ByName("Vesuvius")
	assert.False(t, ok)
}

func TestCatalog_Settings(t *testing.T) {
	cat, err := LoadCSV(writeTempCSV(t, catalogCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Intraplate / Oceanic crust (<15 km)",
		"Rift zone / Oceanic crust (<15 km)",
		"Subduction zone / Continental crust (>25 km)",
	}, cat.Settings())
	assert.Equal(t, []string{"Hawaii", "Iceland", "Italy"}, cat.Subregions())
}

func createTestShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volcanoes.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("VOLCANO", 60),
		shp.StringField("TECTONIC", 60),
		shp.StringField("SUBREGION", 60),
	}
	require.NoError(t, w.SetFields(fields))

	volcanoes := []model.VolcanoEntry{
		{Name: "Etna", Latitude: 37.748, Longitude: 14.999, TectonicSetting: "Subduction zone", Subregion: "Italy"},
		{Name: "Krafla", Latitude: 65.715, Longitude: -16.728, TectonicSetting: "Rift zone", Subregion: "Iceland"},
	}
	for i, v := range volcanoes {
		w.Write(&shp.Point{X: v.Longitude, Y: v.Latitude})
		require.NoError(t, w.WriteAttribute(i, 0, v.Name))
		require.NoError(t, w.WriteAttribute(i, 1, v.TectonicSetting))
		require.NoError(t, w.WriteAttribute(i, 2, v.Subregion))
	}
	w.Close()

	// go-shp v0.1.1's Writer saves the attribute table as "<base>dbf"
	// (missing the dot) while its Reader opens "<base>.dbf"; move the
	// sidecar to the standard name so the fixture is a valid shapefile.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	// The same Writer pads dbf records with NUL bytes, but dBASE pads
	// with spaces; normalize the records area so the fixture matches
	// what real catalog shapefiles contain.
	data, err := os.ReadFile(base + ".dbf")
	require.NoError(t, err)
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	for i := headerLen; i < len(data); i++ {
		if data[i] == 0 {
			data[i] = ' '
		}
	}
	require.NoError(t, os.WriteFile(base+".dbf", data, 0o644))

	return path
}

func TestLoadShapefile(t *testing.T) {
	cat, err := LoadShapefile(createTestShapefile(t))
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	krafla, ok := cat.ByName("Krafla")
	require.True(t, ok)
	assert.InDelta(t, 65.715, krafla.Latitude, 1e-4)
	assert.InDelta(t, -16.728, krafla.Longitude, 1e-4)
	assert.Equal(t, "Rift zone", krafla.TectonicSetting)
	assert.Equal(t, "Iceland", krafla.Subregion)
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	_, err := Load("catalog.xlsx")
	require.Error(t, err)

	cat, err := Load(writeTempCSV(t, catalogCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
}
