package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/ingest"
	"github.com/volcanica/petro-cli/internal/model"
	"github.com/volcanica/petro-cli/internal/pipeline"
)

var (
	ingestSamplePaths []string
	ingestCatalogPath string
	ingestForce       bool
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read sample exports, match them to volcanoes and aggregate per location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		if len(ingestSamplePaths) == 0 {
			return eris.New("at least one --samples file is required")
		}
		if ingestConcurrency > 0 {
			cfg.Match.Concurrency = ingestConcurrency
		}

		catalogPath := ingestCatalogPath
		if catalogPath == "" {
			catalogPath = cfg.Catalog.Path
		}
		cat, err := loadCatalog(catalogPath)
		if err != nil {
			return err
		}

		var samples []model.SampleRecord
		for _, path := range ingestSamplePaths {
			records, stats, err := ingest.Read(path)
			if err != nil {
				return err
			}
			zap.L().Info("samples read",
				zap.String("path", path),
				zap.Int("rows", stats.Rows),
				zap.Int("parsed", stats.Parsed),
				zap.Int("dropped_coords", stats.DroppedCoords),
				zap.Int("dropped_fields", stats.DroppedFields),
			)
			samples = append(samples, records...)
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := pipeline.New(newMatcher(cat), newAggregateCache(), st)
		res, err := p.Run(ctx, samples, ingestForce)
		if err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.String("run_id", res.RunID),
			zap.Int("samples", res.Samples),
			zap.Int("locations", res.Locations),
			zap.Int("unmatched", res.Unmatched),
			zap.Bool("cache_hit", res.CacheHit),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringArrayVar(&ingestSamplePaths, "samples", nil, "sample export file, .csv or .xlsx (repeatable)")
	ingestCmd.Flags().StringVar(&ingestCatalogPath, "catalog", "", "volcano catalog path (default from config)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "recompute even when a cached aggregate exists")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "matcher fan-out width (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
