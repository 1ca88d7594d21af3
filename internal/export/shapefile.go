// Package export writes solved service areas to exchange formats.
package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/drivetime-cli/internal/servicearea"
)

// shapefileFields is the attribute schema for exported polygons.
func shapefileFields() []shp.Field {
	return []shp.Field{
		shp.StringField("NAME", 80),
		shp.FloatField("FROMBREAK", 12, 2),
		shp.FloatField("TOBREAK", 12, 2),
	}
}

// WriteShapefile writes the polygon set to a .shp/.dbf pair at path,
// tagging each shape with its facility name and break range.
func WriteShapefile(path string, polys []servicearea.Polygon) error {
	if len(polys) == 0 {
		return eris.New("export: no polygons to write")
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapefileFields()); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for i, p := range polys {
		shape := polygonToShape(p)
		if shape == nil {
			zap.L().Warn("export: skipping empty polygon", zap.Int("index", i))
			continue
		}
		row := int(w.Write(shape))

		if err := w.WriteAttribute(row, 0, p.Facility); err != nil {
			return eris.Wrapf(err, "export: write NAME for polygon %d", i)
		}
		if err := w.WriteAttribute(row, 1, p.FromBreak); err != nil {
			return eris.Wrapf(err, "export: write FROMBREAK for polygon %d", i)
		}
		if err := w.WriteAttribute(row, 2, p.ToBreak); err != nil {
			return eris.Wrapf(err, "export: write TOBREAK for polygon %d", i)
		}
	}

	return nil
}

// polygonToShape converts a go-geom polygon to a shapefile polygon, one
// part per ring. Returns nil for degenerate geometry.
func polygonToShape(p servicearea.Polygon) *shp.Polygon {
	if p.Geometry == nil || p.Geometry.NumLinearRings() == 0 {
		return nil
	}

	parts := make([][]shp.Point, 0, p.Geometry.NumLinearRings())
	for ri := 0; ri < p.Geometry.NumLinearRings(); ri++ {
		coords := p.Geometry.LinearRing(ri).Coords()
		if len(coords) == 0 {
			continue
		}
		pts := make([]shp.Point, len(coords))
		for pi, c := range coords {
			pts[pi] = shp.Point{X: c.X(), Y: c.Y()}
		}
		parts = append(parts, pts)
	}
	if len(parts) == 0 {
		return nil
	}

	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly
}
