package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

var modesName string

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List travel modes supported by the routing service",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initWorkflow()
		if err != nil {
			return err
		}
		defer e.Close()

		modes, err := e.Client.TravelModes(cmd.Context())
		if err != nil {
			return err
		}

		if modesName != "" {
			m, err := gis.FindTravelMode(modes, modesName)
			if err != nil {
				return err
			}
			modes = []gis.TravelMode{*m}
		}

		for _, m := range modes {
			fmt.Printf("%s (%s)\n", m.Name, m.Type)
			if m.Description != "" {
				fmt.Printf("  %s\n", m.Description)
			}
			if m.ImpedanceAttributeName != "" {
				fmt.Printf("  impedance: %s\n", m.ImpedanceAttributeName)
			}
		}
		return nil
	},
}

func init() {
	modesCmd.Flags().StringVar(&modesName, "name", "", "show only the mode with this name")
	rootCmd.AddCommand(modesCmd)
}
