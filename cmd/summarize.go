package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/cache"
	"github.com/volcanica/petro-cli/internal/model"
	"github.com/volcanica/petro-cli/internal/summarize"
)

var (
	summarizeBucket string
	summarizeForce  bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Compute major-rock profiles per tectonic-setting bucket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("summarize"); err != nil {
			return err
		}

		cat, err := loadCatalog(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		buckets, err := summarize.LoadBuckets()
		if err != nil {
			return err
		}
		if err := buckets.Validate(cat); err != nil {
			return err
		}

		// The aggregated snapshot is the summarizer's input; a miss means
		// ingest has not been run yet.
		agg, err := newAggregateCache().Load()
		if err != nil {
			if eris.Is(err, cache.ErrMiss) {
				return eris.New("no aggregated snapshot found, run ingest first")
			}
			return err
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		profiles := newProfileCache()
		s := summarize.NewSummarizer(cat, buckets, profiles,
			summarize.WithConcurrency(cfg.Summarize.Concurrency))

		var results map[string][]model.MajorRockProfile
		if summarizeBucket != "" {
			bucket, ok := buckets.ByID(summarizeBucket)
			if !ok {
				return eris.Errorf("unknown bucket: %s (known: %v)", summarizeBucket, buckets.IDs())
			}
			var bucketProfiles []model.MajorRockProfile
			if !summarizeForce {
				if cached, err := profiles.Load(bucket.ID); err == nil {
					bucketProfiles = cached
				}
			}
			if bucketProfiles == nil {
				bucketProfiles = s.Summarize(bucket, agg)
				if err := profiles.Store(bucket.ID, bucketProfiles); err != nil {
					return err
				}
			}
			results = map[string][]model.MajorRockProfile{bucket.ID: bucketProfiles}
		} else {
			results, err = s.SummarizeAll(ctx, agg, summarizeForce)
			if err != nil {
				return err
			}
		}

		for id, bucketProfiles := range results {
			if err := st.ReplaceProfiles(ctx, id, bucketProfiles); err != nil {
				return err
			}
		}

		total := 0
		for _, bucketProfiles := range results {
			total += len(bucketProfiles)
		}
		zap.L().Info("summarize complete",
			zap.Int("buckets", len(results)),
			zap.Int("profiles", total),
		)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeBucket, "bucket", "", "summarize a single bucket (default all)")
	summarizeCmd.Flags().BoolVar(&summarizeForce, "force", false, "recompute even when cached bucket profiles exist")
	rootCmd.AddCommand(summarizeCmd)
}
