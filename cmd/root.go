package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/drivetime-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "drivetime",
	Short: "Drive-time service areas from a hosted GIS platform",
	Long:  "Geocodes facility addresses, solves drive-time service areas against a hosted network-analysis service, and renders the concentric polygons as interactive maps, GeoJSON, or shapefiles.",
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
