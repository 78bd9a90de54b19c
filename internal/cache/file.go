package cache

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/model"
)

// aggregateRow is the flat CSV form of one AggregatedLocation. Frequency
// tables are embedded as JSON; encoding/json sorts map keys, keeping the
// artifact byte-stable across runs.
type aggregateRow struct {
	Latitude        float64 `csv:"latitude"`
	Longitude       float64 `csv:"longitude"`
	SampleIDs       string  `csv:"sample_ids"`
	Volcano         string  `csv:"volcano"`
	StabilizedKM    float64 `csv:"stabilized_km"`
	RockCounts      string  `csv:"rock_counts"`
	RockCountsNoInc string  `csv:"rock_counts_no_inclusions"`
	MaterialCounts  string  `csv:"material_counts"`
}

// FileAggregateCache persists the aggregate snapshot as one CSV artifact.
type FileAggregateCache struct {
	path string
}

// NewFileAggregateCache creates a cache backed by the given CSV path.
func NewFileAggregateCache(path string) *FileAggregateCache {
	return &FileAggregateCache{path: path}
}

// Load reads the cached snapshot. A missing or unreadable artifact is a
// miss, not a failure.
func (c *FileAggregateCache) Load() ([]model.AggregatedLocation, error) {
	rows, err := readCSV[aggregateRow](c.path)
	if err != nil {
		return nil, err
	}

	locs := make([]model.AggregatedLocation, 0, len(rows))
	for _, r := range rows {
		loc := model.AggregatedLocation{
			Latitude:     r.Latitude,
			Longitude:    r.Longitude,
			SampleIDs:    r.SampleIDs,
			Volcano:      r.Volcano,
			StabilizedKM: r.StabilizedKM,
		}
		if err := json.Unmarshal([]byte(r.RockCounts), &loc.RockCounts); err != nil {
			return nil, corrupt(c.path, err)
		}
		if err := json.Unmarshal([]byte(r.RockCountsNoInc), &loc.RockCountsNoInclusions); err != nil {
			return nil, corrupt(c.path, err)
		}
		if err := json.Unmarshal([]byte(r.MaterialCounts), &loc.MaterialCounts); err != nil {
			return nil, corrupt(c.path, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// Store replaces the snapshot in full. No merge semantics: recomputation
// is total, so the previous artifact is simply swapped out.
func (c *FileAggregateCache) Store(locs []model.AggregatedLocation) error {
	rows := make([]aggregateRow, 0, len(locs))
	for _, l := range locs {
		rc, err := json.Marshal(l.RockCounts)
		if err != nil {
			return eris.Wrap(err, "cache: marshal rock counts")
		}
		rcn, err := json.Marshal(l.RockCountsNoInclusions)
		if err != nil {
			return eris.Wrap(err, "cache: marshal rock counts (no inclusions)")
		}
		mc, err := json.Marshal(l.MaterialCounts)
		if err != nil {
			return eris.Wrap(err, "cache: marshal material counts")
		}
		rows = append(rows, aggregateRow{
			Latitude:        l.Latitude,
			Longitude:       l.Longitude,
			SampleIDs:       l.SampleIDs,
			Volcano:         l.Volcano,
			StabilizedKM:    l.StabilizedKM,
			RockCounts:      string(rc),
			RockCountsNoInc: string(rcn),
			MaterialCounts:  string(mc),
		})
	}
	return writeCSV(c.path, rows)
}

// Invalidate removes the artifact.
func (c *FileAggregateCache) Invalidate() error {
	return removeIfExists(c.path)
}

// profileRow is the flat CSV form of one MajorRockProfile: volcano,
// material, then the five ranked labels with counts and shares.
type profileRow struct {
	Volcano  string  `csv:"volcano"`
	Material string  `csv:"material"`
	Rock1    string  `csv:"rock_1"`
	Rock2    string  `csv:"rock_2"`
	Rock3    string  `csv:"rock_3"`
	Rock4    string  `csv:"rock_4"`
	Rock5    string  `csv:"rock_5"`
	Count1   int     `csv:"count_1"`
	Count2   int     `csv:"count_2"`
	Count3   int     `csv:"count_3"`
	Count4   int     `csv:"count_4"`
	Count5   int     `csv:"count_5"`
	Share1   float64 `csv:"share_1"`
	Share2   float64 `csv:"share_2"`
	Share3   float64 `csv:"share_3"`
	Share4   float64 `csv:"share_4"`
	Share5   float64 `csv:"share_5"`
}

// FileProfileCache persists per-bucket major-rock summaries, one CSV
// artifact per bucket identifier.
type FileProfileCache struct {
	dir string
}

// NewFileProfileCache creates a per-bucket cache rooted at dir.
func NewFileProfileCache(dir string) *FileProfileCache {
	return &FileProfileCache{dir: dir}
}

func (c *FileProfileCache) bucketPath(bucket string) string {
	return filepath.Join(c.dir, "major_rocks_"+bucket+".csv")
}

// Load reads one bucket's cached profiles.
func (c *FileProfileCache) Load(bucket string) ([]model.MajorRockProfile, error) {
	rows, err := readCSV[profileRow](c.bucketPath(bucket))
	if err != nil {
		return nil, err
	}

	profiles := make([]model.MajorRockProfile, 0, len(rows))
	for _, r := range rows {
		p := model.MajorRockProfile{Volcano: r.Volcano, Material: model.Material(r.Material)}
		labels := [model.ProfileSize]string{r.Rock1, r.Rock2, r.Rock3, r.Rock4, r.Rock5}
		counts := [model.ProfileSize]int{r.Count1, r.Count2, r.Count3, r.Count4, r.Count5}
		shares := [model.ProfileSize]float64{r.Share1, r.Share2, r.Share3, r.Share4, r.Share5}
		for i := range model.ProfileSize {
			p.Rocks[i] = model.RankedRock{Label: labels[i], Count: counts[i], Share: shares[i]}
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Store replaces one bucket's artifact without touching any other bucket.
func (c *FileProfileCache) Store(bucket string, profiles []model.MajorRockProfile) error {
	rows := make([]profileRow, 0, len(profiles))
	for _, p := range profiles {
		r := profileRow{Volcano: p.Volcano, Material: string(p.Material)}
		r.Rock1, r.Rock2, r.Rock3, r.Rock4, r.Rock5 = p.Rocks[0].Label, p.Rocks[1].Label, p.Rocks[2].Label, p.Rocks[3].Label, p.Rocks[4].Label
		r.Count1, r.Count2, r.Count3, r.Count4, r.Count5 = p.Rocks[0].Count, p.Rocks[1].Count, p.Rocks[2].Count, p.Rocks[3].Count, p.Rocks[4].Count
		r.Share1, r.Share2, r.Share3, r.Share4, r.Share5 = p.Rocks[0].Share, p.Rocks[1].Share, p.Rocks[2].Share, p.Rocks[3].Share, p.Rocks[4].Share
		rows = append(rows, r)
	}
	return writeCSV(c.bucketPath(bucket), rows)
}

// Invalidate removes one bucket's artifact.
func (c *FileProfileCache) Invalidate(bucket string) error {
	return removeIfExists(c.bucketPath(bucket))
}

// readCSV loads a typed CSV artifact, mapping every failure mode to a miss.
func readCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		zap.L().Warn("cache: unreadable artifact, treating as miss",
			zap.String("path", path), zap.Error(err))
		return nil, ErrMiss
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, corrupt(path, err)
	}
	var rows []T
	if err := dec.Decode(&rows); err != nil {
		return nil, corrupt(path, err)
	}
	return rows, nil
}

// writeCSV atomically replaces a typed CSV artifact.
func writeCSV[T any](path string, rows []T) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		enc := csvutil.NewEncoder(cw)
		if err := enc.Encode(rows); err != nil {
			return eris.Wrap(err, "cache: encode csv")
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "cache: flush csv")
	})
}

// corrupt logs a damaged artifact and reports a miss so the caller
// recomputes instead of failing.
func corrupt(path string, err error) error {
	zap.L().Warn("cache: corrupt artifact, treating as miss",
		zap.String("path", path), zap.Error(err))
	return ErrMiss
}
