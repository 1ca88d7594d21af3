// Package render turns solved service areas into map artifacts: GeoJSON
// feature collections and a self-contained interactive HTML map, with an
// animation frame per time-of-day sample.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// RGBA is a fill color with fractional opacity.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// Hex returns the color as "#rrggbb".
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorTable maps a ToBreak value to its fill color. Color choice is a pure
// function of the break: a break with no entry is an error, never a silent
// no-render.
type ColorTable map[float64]RGBA

// DefaultColorTable is the 5/10/15 minute palette: green, amber, red.
func DefaultColorTable() ColorTable {
	return ColorTable{
		5:  {R: 0, G: 128, B: 0, A: 0.35},
		10: {R: 255, G: 191, B: 0, A: 0.35},
		15: {R: 255, G: 0, B: 0, A: 0.35},
	}
}

// ColorFor returns the fill color for a break value.
func (t ColorTable) ColorFor(toBreak float64) (RGBA, error) {
	c, ok := t[toBreak]
	if !ok {
		return RGBA{}, eris.Errorf("render: no color configured for break %g (configured: %s)",
			toBreak, formatBreakList(t.Breaks()))
	}
	return c, nil
}

// Breaks returns the configured break values in ascending order.
func (t ColorTable) Breaks() []float64 {
	breaks := make([]float64, 0, len(t))
	for b := range t {
		breaks = append(breaks, b)
	}
	sort.Float64s(breaks)
	return breaks
}

// ParseColorTable builds a table from config entries of the form
// break -> "r,g,b,a", e.g. "10" -> "255,191,0,0.35".
func ParseColorTable(entries map[string]string) (ColorTable, error) {
	if len(entries) == 0 {
		return DefaultColorTable(), nil
	}

	table := make(ColorTable, len(entries))
	for key, val := range entries {
		brk, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "render: color table break %q", key)
		}

		parts := strings.Split(val, ",")
		if len(parts) != 4 {
			return nil, eris.Errorf("render: color %q for break %s: want r,g,b,a", val, key)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 8)
			if err != nil {
				return nil, eris.Wrapf(err, "render: color %q for break %s", val, key)
			}
			rgb[i] = uint8(n)
		}
		alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || alpha < 0 || alpha > 1 {
			return nil, eris.Errorf("render: alpha %q for break %s must be in [0,1]", parts[3], key)
		}

		table[brk] = RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}
	}
	return table, nil
}

func formatBreakList(breaks []float64) string {
	parts := make([]string, len(breaks))
	for i, b := range breaks {
		parts[i] = strconv.FormatFloat(b, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
