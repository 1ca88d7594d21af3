package render

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/drivetime-cli/internal/servicearea"
)

// FrameCollection builds one displayable GeoJSON feature collection from a
// polygon set plus the facility markers. Pass-through: every polygon yields
// exactly one feature with its attributes preserved; style properties are
// added from the color table. Polygons are ordered largest break first so
// the smaller rings draw on top.
func FrameCollection(polys []servicearea.Polygon, facilities []servicearea.Facility, colors ColorTable) (*geojson.FeatureCollection, error) {
	ordered := make([]servicearea.Polygon, len(polys))
	copy(ordered, polys)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ToBreak > ordered[j].ToBreak
	})

	fc := &geojson.FeatureCollection{}
	for i, p := range ordered {
		color, err := colors.ColorFor(p.ToBreak)
		if err != nil {
			return nil, err
		}

		props := make(map[string]any, len(p.Attributes)+4)
		for k, v := range p.Attributes {
			props[k] = v
		}
		props["fill"] = color.Hex()
		props["fillOpacity"] = color.A
		props["popupTitle"] = popupTitle(p)
		props["popupBody"] = fmt.Sprintf("Reachable within %g–%g minutes", p.FromBreak, p.ToBreak)

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         fmt.Sprintf("ring-%d", i),
			Geometry:   p.Geometry,
			Properties: props,
		})
	}

	for i, f := range facilities {
		pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{f.X, f.Y})
		if err != nil {
			return nil, eris.Wrapf(err, "render: facility %q", f.Label)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("facility-%d", i),
			Geometry: pt.SetSRID(4326),
			Properties: map[string]any{
				"marker":     true,
				"popupTitle": f.Label,
				"popupBody":  f.MatchedAddress,
			},
		})
	}

	return fc, nil
}

func popupTitle(p servicearea.Polygon) string {
	if p.Facility != "" {
		return p.Facility
	}
	return fmt.Sprintf("%g minute service area", p.ToBreak)
}
