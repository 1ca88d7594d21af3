// Package servicearea converts solver responses into typed drive-time
// polygons and describes solve scenarios. One conversion path serves both
// the single-solve and the time-of-day sweep.
package servicearea

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

// Polygon is one concentric service-area ring: the area reachable between
// FromBreak and ToBreak minutes of the facility.
type Polygon struct {
	Facility   string
	FromBreak  float64
	ToBreak    float64
	Geometry   *geom.Polygon
	Attributes map[string]any
}

// Convert turns a solver polygon feature set into typed polygons. It is a
// pass-through: every feature yields exactly one Polygon with its geometry
// and attributes preserved.
func Convert(fs gis.PolygonFeatureSet) ([]Polygon, error) {
	srid := fs.SpatialReference.WKID
	if srid == 0 {
		srid = 4326
	}

	polys := make([]Polygon, 0, len(fs.Features))
	for i, f := range fs.Features {
		g, err := ringsToPolygon(f.Geometry.Rings, srid)
		if err != nil {
			return nil, eris.Wrapf(err, "servicearea: feature %d", i)
		}

		fromBreak, err := attrFloat(f.Attributes, "FromBreak")
		if err != nil {
			return nil, eris.Wrapf(err, "servicearea: feature %d", i)
		}
		toBreak, err := attrFloat(f.Attributes, "ToBreak")
		if err != nil {
			return nil, eris.Wrapf(err, "servicearea: feature %d", i)
		}

		attrs := make(map[string]any, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}

		name, _ := f.Attributes["Name"].(string)

		polys = append(polys, Polygon{
			Facility:   name,
			FromBreak:  fromBreak,
			ToBreak:    toBreak,
			Geometry:   g,
			Attributes: attrs,
		})
	}
	return polys, nil
}

// ValidateCounts checks the solver invariant: exactly one polygon per
// (facility, break) combination, and no polygon tagged with an unrequested
// break.
func ValidateCounts(polys []Polygon, facilityCount int, breaks []float64) error {
	requested := make(map[float64]bool, len(breaks))
	for _, b := range breaks {
		requested[b] = true
	}

	perBreak := make(map[float64]int, len(breaks))
	for _, p := range polys {
		if !requested[p.ToBreak] {
			return eris.Errorf("servicearea: polygon tagged with unrequested break %g", p.ToBreak)
		}
		perBreak[p.ToBreak]++
	}

	if len(polys) != facilityCount*len(breaks) {
		return eris.Errorf("servicearea: expected %d polygons (%d facilities x %d breaks), got %d",
			facilityCount*len(breaks), facilityCount, len(breaks), len(polys))
	}
	for _, b := range breaks {
		if perBreak[b] != facilityCount {
			return eris.Errorf("servicearea: break %g has %d polygons, expected %d", b, perBreak[b], facilityCount)
		}
	}
	return nil
}

// ringsToPolygon builds a go-geom polygon from platform ring coordinates.
func ringsToPolygon(rings [][][]float64, srid int) (*geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, eris.New("servicearea: polygon has no rings")
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(srid)
	for ri, ring := range rings {
		if len(ring) < 4 {
			return nil, eris.Errorf("servicearea: ring %d has %d positions, need at least 4", ri, len(ring))
		}
		coords := make([]geom.Coord, len(ring))
		for pi, pos := range ring {
			if len(pos) < 2 {
				return nil, eris.Errorf("servicearea: ring %d position %d is malformed", ri, pi)
			}
			coords[pi] = geom.Coord{pos[0], pos[1]}
		}
		lr, err := geom.NewLinearRing(geom.XY).SetCoords(coords)
		if err != nil {
			return nil, eris.Wrapf(err, "servicearea: ring %d", ri)
		}
		if err := poly.Push(lr); err != nil {
			return nil, eris.Wrapf(err, "servicearea: push ring %d", ri)
		}
	}
	return poly, nil
}

// attrFloat reads a numeric attribute, tolerating the types JSON decoding
// can produce.
func attrFloat(attrs map[string]any, key string) (float64, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, eris.Errorf("servicearea: missing attribute %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, eris.Wrapf(err, "servicearea: attribute %q", key)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "servicearea: attribute %q", key)
		}
		return f, nil
	default:
		return 0, eris.Errorf("servicearea: attribute %q has unsupported type %T", key, v)
	}
}
