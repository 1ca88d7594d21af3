package servicearea

import "github.com/sells-group/drivetime-cli/pkg/gis"

// Facility is a resolved origin (or destination) of travel: the geocoded
// coordinate for one requested address.
type Facility struct {
	// Label is the human-facing name, usually the input address.
	Label string
	// MatchedAddress is the address the geocoder actually matched.
	MatchedAddress string
	X              float64
	Y              float64
	Score          float64
}

// PointFeature renders the facility in the form the solver accepts.
func (f Facility) PointFeature() gis.PointFeature {
	sr := gis.WGS84
	return gis.PointFeature{
		Geometry: gis.Point{X: f.X, Y: f.Y, SpatialReference: &sr},
		Attributes: map[string]any{
			"Name": f.Label,
		},
	}
}

// FacilitySet packages facilities as the solver's point feature collection,
// preserving order.
func FacilitySet(facilities []Facility) gis.PointFeatureSet {
	fs := gis.PointFeatureSet{Features: make([]gis.PointFeature, len(facilities))}
	for i, f := range facilities {
		fs.Features[i] = f.PointFeature()
	}
	return fs
}
