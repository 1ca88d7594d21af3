package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

var geocodeMax int

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address to candidate coordinates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initWorkflow()
		if err != nil {
			return err
		}
		defer e.Close()

		query := strings.Join(args, " ")
		candidates, err := e.Client.GeocodeCandidates(cmd.Context(), query, geocodeMax)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return eris.Wrapf(gis.ErrNoMatch, "geocode %q", query)
		}

		for i, c := range candidates {
			fmt.Printf("%d. %s\n   x=%.5f y=%.5f score=%.1f\n", i+1, c.Address, c.Location.X, c.Location.Y, c.Score)
		}
		return nil
	},
}

func init() {
	geocodeCmd.Flags().IntVar(&geocodeMax, "max", 5, "maximum candidates to show")
	rootCmd.AddCommand(geocodeCmd)
}
