package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/summarize"
)

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the volcano reference catalog",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog inventory and bucket coverage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := catalogPath
		if path == "" {
			path = cfg.Catalog.Path
		}
		cat, err := loadCatalog(path)
		if err != nil {
			return err
		}

		buckets, err := summarize.LoadBuckets()
		if err != nil {
			return err
		}

		formatCatalogStats(os.Stdout, cat, buckets)
		return nil
	},
}

func init() {
	catalogStatsCmd.Flags().StringVar(&catalogPath, "catalog", "", "volcano catalog path (default from config)")
	catalogCmd.AddCommand(catalogStatsCmd)
	rootCmd.AddCommand(catalogCmd)
}

// formatCatalogStats writes the catalog inventory and per-bucket volcano
// counts to w.
func formatCatalogStats(out io.Writer, cat *catalog.Catalog, buckets *summarize.Buckets) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Volcanoes:\t%d\n", cat.Len())
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "TECTONIC SETTING")
	for _, setting := range cat.Settings() {
		n := 0
		for _, v := range cat.Entries() {
			if v.TectonicSetting == setting {
				n++
			}
		}
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", setting, n)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "BUCKET")
	bucketed := 0
	for _, b := range buckets.Buckets {
		n := len(b.Volcanoes(cat))
		bucketed += n
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", b.ID, n)
	}
	_, _ = fmt.Fprintf(w, "  (unbucketed)\t%d\n", cat.Len()-bucketed)

	_ = w.Flush()
}
