package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/drivetime-cli/internal/render"
	"github.com/sells-group/drivetime-cli/internal/servicearea"
)

var (
	animateFacilities []string
	animateScenario   string
	animateBreaks     []float64
	animateDirection  string
	animateMode       string
	animateTimes      []string
	animateUTC        bool
	animateInterval   int
	animateOut        string
)

var animateCmd = &cobra.Command{
	Use:   "animate",
	Short: "Sweep a solve across times of day and render an animated map",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initWorkflow()
		if err != nil {
			return err
		}
		defer e.Close()

		req, title, err := buildRequest(animateFacilities, animateScenario, animateBreaks, animateDirection, animateMode, animateUTC)
		if err != nil {
			return err
		}

		timeEntries := animateTimes
		if len(timeEntries) == 0 && animateScenario != "" {
			s, err := servicearea.LoadScenario(animateScenario)
			if err != nil {
				return err
			}
			timeEntries = s.TimesOfDay
			req.TimeOfDayIsUTC = req.TimeOfDayIsUTC || s.TimeOfDayIsUTC
		}
		if len(timeEntries) == 0 {
			return eris.New("at least one time of day is required (--times or scenario times_of_day)")
		}
		times, err := servicearea.ParseTimesOfDay(timeEntries, req.TimeOfDayIsUTC)
		if err != nil {
			return err
		}

		sweep, err := e.Workflow.Sweep(cmd.Context(), *req, times)
		if err != nil {
			return err
		}

		colors, err := render.ParseColorTable(cfg.Render.Colors)
		if err != nil {
			return err
		}

		frames := make([]render.Frame, len(sweep.Frames))
		for i, f := range sweep.Frames {
			collection, err := render.FrameCollection(f.Polygons, sweep.Facilities, colors)
			if err != nil {
				return err
			}
			frames[i] = render.Frame{Label: f.Label, Collection: collection}
		}

		interval := animateInterval
		if interval <= 0 {
			interval = cfg.Render.FrameIntervalMS
		}
		doc := render.Map{Title: title, Frames: frames, FrameIntervalMS: interval}
		if err := doc.WriteFile(animateOut); err != nil {
			return err
		}
		zap.L().Info("animated map written",
			zap.String("path", animateOut),
			zap.Int("frames", len(frames)),
		)

		fmt.Printf("run %s: %d frames -> %s\n", sweep.RunID, len(frames), animateOut)
		return nil
	},
}

func init() {
	animateCmd.Flags().StringArrayVar(&animateFacilities, "facility", nil, "facility address (repeatable)")
	animateCmd.Flags().StringVar(&animateScenario, "scenario", "", "scenario YAML file")
	animateCmd.Flags().Float64SliceVar(&animateBreaks, "breaks", nil, "drive-time breaks in minutes (default from config)")
	animateCmd.Flags().StringVar(&animateDirection, "direction", "", "travel direction: from-facility or to-facility")
	animateCmd.Flags().StringVar(&animateMode, "mode", "", "travel mode name (default: server default)")
	animateCmd.Flags().StringArrayVar(&animateTimes, "times", nil, "time-of-day sample (repeatable)")
	animateCmd.Flags().BoolVar(&animateUTC, "utc", false, "interpret times of day as UTC")
	animateCmd.Flags().IntVar(&animateInterval, "interval-ms", 0, "frame interval in milliseconds (default from config)")
	animateCmd.Flags().StringVar(&animateOut, "out", "service-areas.html", "output HTML path")
	rootCmd.AddCommand(animateCmd)
}
