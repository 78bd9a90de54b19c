package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "petro-cli",
	Short: "Volcanic sample aggregation pipeline",
	Long:  "Matches geochemical sample coordinates to catalog volcanoes, aggregates rock compositions per location, and summarizes major rock types per tectonic setting.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
