package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/clean"
	"github.com/volcanica/petro-cli/internal/model"
)

// Stats counts what happened to the rows of one export.
type Stats struct {
	Rows          int
	Parsed        int
	DroppedCoords int
	DroppedFields int
}

// XLSXOptions configures the worksheet reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one worksheet export into sample records. The first row
// is the header.
func ReadXLSX(path string, opts XLSXOptions) ([]model.SampleRecord, Stats, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, Stats{}, err
	}

	var header []string
	var rows [][]string
	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if i == 0 {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}

	records, stats := parseRows(path, header, rows)
	return records, stats, nil
}

// ReadCSV reads one delimited-text export into sample records.
func ReadCSV(path string) ([]model.SampleRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "ingest: read csv header")
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Stats{}, eris.Wrap(err, "ingest: read csv row")
		}
		rows = append(rows, row)
	}

	records, stats := parseRows(path, header, rows)
	return records, stats, nil
}

// parseRows converts raw cells to sample records using the canonical
// column mapping. A row without parseable coordinates is dropped and
// counted; a malformed oxide field is dropped while the record is kept.
func parseRows(path string, header []string, rows [][]string) ([]model.SampleRecord, Stats) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = canonicalColumn(h)
	}

	stats := Stats{Rows: len(rows)}
	var records []model.SampleRecord

	for _, row := range rows {
		rec := model.SampleRecord{Oxides: make(map[string]float64)}
		var latRaw, lonRaw string

		for i, cell := range row {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			switch col := columns[i]; col {
			case colID:
				rec.ID = cell
			case colMaterial:
				rec.Material = parseMaterial(cell)
			case colRock:
				rec.RockType = strings.ToUpper(cell)
			case colLat:
				latRaw = cell
			case colLon:
				lonRaw = cell
			default: // oxide column
				v, ok := clean.Field(col, cell)
				if !ok {
					stats.DroppedFields++
					continue
				}
				rec.Oxides[col] = v
			}
		}

		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			stats.DroppedCoords++
			continue
		}
		rec.Latitude = lat
		rec.Longitude = lon
		if rec.Material == "" {
			rec.Material = model.MaterialWholeRock
		}
		if rec.RockType == "" {
			rec.RockType = model.UnnamedLabel
		}

		records = append(records, rec)
		stats.Parsed++
	}

	if stats.DroppedCoords > 0 || stats.DroppedFields > 0 {
		zap.L().Warn("ingest: export had bad rows",
			zap.String("path", path),
			zap.Int("dropped_coords", stats.DroppedCoords),
			zap.Int("dropped_fields", stats.DroppedFields),
		)
	}
	return records, stats
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// Read dispatches on file extension: .xlsx to the worksheet reader,
// anything else to the CSV reader.
func Read(path string) ([]model.SampleRecord, Stats, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, XLSXOptions{})
	}
	return ReadCSV(path)
}
