package gis

// SpatialReference identifies the coordinate system of a geometry, by
// well-known ID. WGS84 (wkid 4326) is the default for everything this
// client sends.
type SpatialReference struct {
	WKID       int `json:"wkid,omitempty"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// WGS84 is the spatial reference used for client-constructed geometries.
var WGS84 = SpatialReference{WKID: 4326}

// Point is a point geometry in platform JSON form.
type Point struct {
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// PointFeature is a point geometry with free-form attributes, used to submit
// facilities to the solver.
type PointFeature struct {
	Geometry   Point          `json:"geometry"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// PointFeatureSet is a collection of point features.
type PointFeatureSet struct {
	Features []PointFeature `json:"features"`
}

// PolygonGeometry is a polygon in platform JSON form: a list of rings, each
// ring a closed list of [x, y] positions.
type PolygonGeometry struct {
	Rings            [][][]float64     `json:"rings"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// PolygonFeature is one polygon with its attributes. Service-area results
// tag each polygon with FromBreak/ToBreak attributes.
type PolygonFeature struct {
	Attributes map[string]any  `json:"attributes"`
	Geometry   PolygonGeometry `json:"geometry"`
}

// PolygonFeatureSet is the polygon collection returned by the solver.
type PolygonFeatureSet struct {
	GeometryType     string           `json:"geometryType"`
	SpatialReference SpatialReference `json:"spatialReference"`
	Features         []PolygonFeature `json:"features"`
}

// NAMessage is a diagnostic message emitted by the network-analysis solver.
type NAMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}
