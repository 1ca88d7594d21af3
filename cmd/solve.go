package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/drivetime-cli/internal/export"
	"github.com/sells-group/drivetime-cli/internal/render"
	"github.com/sells-group/drivetime-cli/internal/servicearea"
	"github.com/sells-group/drivetime-cli/internal/workflow"
	"github.com/sells-group/drivetime-cli/pkg/gis"
)

var (
	solveFacilities []string
	solveScenario   string
	solveBreaks     []float64
	solveDirection  string
	solveMode       string
	solveTime       string
	solveUTC        bool
	solveOut        string
	solveGeoJSON    string
	solveShapefile  string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve drive-time service areas for one or more facilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initWorkflow()
		if err != nil {
			return err
		}
		defer e.Close()

		req, title, err := buildRequest(solveFacilities, solveScenario, solveBreaks, solveDirection, solveMode, solveUTC)
		if err != nil {
			return err
		}
		if solveTime != "" {
			times, err := servicearea.ParseTimesOfDay([]string{solveTime}, solveUTC)
			if err != nil {
				return err
			}
			req.TimeOfDay = &times[0]
		}

		result, err := e.Workflow.Solve(cmd.Context(), *req)
		if err != nil {
			return err
		}

		colors, err := render.ParseColorTable(cfg.Render.Colors)
		if err != nil {
			return err
		}
		collection, err := render.FrameCollection(result.Polygons, result.Facilities, colors)
		if err != nil {
			return err
		}

		if solveOut != "" {
			doc := render.Map{
				Title:           title,
				Frames:          []render.Frame{{Label: title, Collection: collection}},
				FrameIntervalMS: cfg.Render.FrameIntervalMS,
			}
			if err := doc.WriteFile(solveOut); err != nil {
				return err
			}
			zap.L().Info("map written", zap.String("path", solveOut))
		}
		if solveGeoJSON != "" {
			if err := writeGeoJSON(solveGeoJSON, collection); err != nil {
				return err
			}
			zap.L().Info("geojson written", zap.String("path", solveGeoJSON))
		}
		if solveShapefile != "" {
			if err := export.WriteShapefile(solveShapefile, result.Polygons); err != nil {
				return err
			}
			zap.L().Info("shapefile written", zap.String("path", solveShapefile))
		}

		fmt.Printf("run %s: %d facilities, %d polygons\n",
			result.RunID, len(result.Facilities), len(result.Polygons))
		return nil
	},
}

// buildRequest assembles a solve request from a scenario file, flags, and
// config defaults, in increasing precedence.
func buildRequest(facilities []string, scenarioPath string, breaks []float64, direction, mode string, utc bool) (*workflow.Request, string, error) {
	req := workflow.Request{
		Facilities:     facilities,
		Breaks:         breaks,
		TravelMode:     mode,
		TimeOfDayIsUTC: utc,
	}
	title := cfg.Render.Title

	if scenarioPath != "" {
		s, err := servicearea.LoadScenario(scenarioPath)
		if err != nil {
			return nil, "", err
		}
		if len(req.Facilities) == 0 {
			req.Facilities = s.Facilities
		}
		if len(req.Breaks) == 0 {
			req.Breaks = s.Breaks
		}
		if direction == "" {
			direction = s.Direction
		}
		if req.TravelMode == "" {
			req.TravelMode = s.TravelMode
		}
		req.TimeOfDayIsUTC = req.TimeOfDayIsUTC || s.TimeOfDayIsUTC
		if s.Name != "" {
			title = s.Name
		}
	}

	if len(req.Breaks) == 0 {
		req.Breaks = cfg.Solve.Breaks
	}
	if direction == "" {
		direction = cfg.Solve.Direction
	}
	if req.TravelMode == "" {
		req.TravelMode = cfg.Solve.TravelMode
	}

	dir, err := gis.ParseTravelDirection(direction)
	if err != nil {
		return nil, "", err
	}
	req.Direction = dir

	if len(req.Facilities) == 0 {
		return nil, "", eris.New("at least one facility is required (--facility or --scenario)")
	}
	return &req, title, nil
}

func writeGeoJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func init() {
	solveCmd.Flags().StringArrayVar(&solveFacilities, "facility", nil, "facility address (repeatable)")
	solveCmd.Flags().StringVar(&solveScenario, "scenario", "", "scenario YAML file")
	solveCmd.Flags().Float64SliceVar(&solveBreaks, "breaks", nil, "drive-time breaks in minutes (default from config)")
	solveCmd.Flags().StringVar(&solveDirection, "direction", "", "travel direction: from-facility or to-facility")
	solveCmd.Flags().StringVar(&solveMode, "mode", "", "travel mode name (default: server default)")
	solveCmd.Flags().StringVar(&solveTime, "time", "", "time of day (RFC3339, '2006-01-02 15:04', or '15:04')")
	solveCmd.Flags().BoolVar(&solveUTC, "utc", false, "interpret time of day as UTC")
	solveCmd.Flags().StringVar(&solveOut, "out", "", "write interactive map HTML to this path")
	solveCmd.Flags().StringVar(&solveGeoJSON, "geojson", "", "write GeoJSON feature collection to this path")
	solveCmd.Flags().StringVar(&solveShapefile, "shp", "", "write polygons as a shapefile to this path")
	rootCmd.AddCommand(solveCmd)
}
