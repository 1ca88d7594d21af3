package gis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solvePayload = `{
	"saPolygons": {
		"geometryType": "esriGeometryPolygon",
		"spatialReference": {"wkid": 4326, "latestWkid": 4326},
		"features": [
			{
				"attributes": {"Name": "Station : 0 - 5", "FromBreak": 0, "ToBreak": 5},
				"geometry": {"rings": [[[-122.5, 37.7], [-122.3, 37.7], [-122.3, 37.9], [-122.5, 37.9], [-122.5, 37.7]]]}
			},
			{
				"attributes": {"Name": "Station : 5 - 10", "FromBreak": 5, "ToBreak": 10},
				"geometry": {"rings": [[[-122.6, 37.6], [-122.2, 37.6], [-122.2, 38.0], [-122.6, 38.0], [-122.6, 37.6]]]}
			}
		]
	},
	"messages": []
}`

func solveFacilities() PointFeatureSet {
	return PointFeatureSet{
		Features: []PointFeature{
			{
				Geometry:   Point{X: -122.41, Y: 37.80, SpatialReference: &WGS84},
				Attributes: map[string]any{"Name": "Station"},
			},
		},
	}
}

func TestSolveServiceArea_RequestEncoding(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sa/solveServiceArea", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(solvePayload)) //nolint:errcheck
	}))
	defer srv.Close()

	tod := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	mode := &TravelMode{Name: "Driving Time", Raw: []byte(`{"name":"Driving Time","type":"AUTOMOBILE"}`)}

	c := testClient(srv, "", "")
	_, err := c.SolveServiceArea(context.Background(), SolveRequest{
		Facilities:     solveFacilities(),
		Breaks:         []float64{5, 10, 15},
		Direction:      TravelDirectionToFacility,
		Mode:           mode,
		TimeOfDay:      &tod,
		TimeOfDayIsUTC: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "5,10,15", form.Get("defaultBreaks"))
	assert.Equal(t, "esriNATravelDirectionToFacility", form.Get("travelDirection"))
	assert.Equal(t, "json", form.Get("f"))
	assert.JSONEq(t, string(mode.Raw), form.Get("travelMode"))
	assert.Equal(t, "1780302600000", form.Get("timeOfDay"))
	assert.Equal(t, "true", form.Get("timeOfDayIsUTC"))

	var facilities PointFeatureSet
	require.NoError(t, json.Unmarshal([]byte(form.Get("facilities")), &facilities))
	require.Len(t, facilities.Features, 1)
	assert.Equal(t, "Station", facilities.Features[0].Attributes["Name"])
	assert.InDelta(t, -122.41, facilities.Features[0].Geometry.X, 0.0001)
}

func TestSolveServiceArea_Defaults(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(solvePayload)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, err := c.SolveServiceArea(context.Background(), SolveRequest{
		Facilities: solveFacilities(),
		Breaks:     []float64{7.5},
	})
	require.NoError(t, err)

	assert.Equal(t, "7.5", form.Get("defaultBreaks"))
	assert.Equal(t, "esriNATravelDirectionFromFacility", form.Get("travelDirection"))
	assert.Empty(t, form.Get("travelMode"))
	assert.Empty(t, form.Get("timeOfDay"))
}

func TestSolveServiceArea_ParsesPolygons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(solvePayload)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	result, err := c.SolveServiceArea(context.Background(), SolveRequest{
		Facilities: solveFacilities(),
		Breaks:     []float64{5, 10},
	})
	require.NoError(t, err)

	assert.Equal(t, "esriGeometryPolygon", result.Polygons.GeometryType)
	assert.Equal(t, 4326, result.Polygons.SpatialReference.WKID)
	require.Len(t, result.Polygons.Features, 2)

	f := result.Polygons.Features[1]
	assert.EqualValues(t, 5, f.Attributes["FromBreak"])
	assert.EqualValues(t, 10, f.Attributes["ToBreak"])
	require.Len(t, f.Geometry.Rings, 1)
	assert.Len(t, f.Geometry.Rings[0], 5)
}

func TestSolveServiceArea_ErrorMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{
			"saPolygons": {"geometryType": "esriGeometryPolygon", "features": []},
			"messages": [
				{"type": "esriJobMessageTypeWarning", "description": "Slow network dataset"},
				{"type": "esriJobMessageTypeError", "description": "Invalid value for travelMode"}
			]
		}`))
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, err := c.SolveServiceArea(context.Background(), SolveRequest{
		Facilities: solveFacilities(),
		Breaks:     []float64{5},
	})
	require.Error(t, err)

	var serr *SolveError
	require.True(t, errors.As(err, &serr))
	require.Len(t, serr.Messages, 1, "warnings are not errors")
	assert.Contains(t, serr.Messages[0].Description, "Invalid value for travelMode")
}

func TestSolveServiceArea_Validation(t *testing.T) {
	c := NewClient("https://example.test", "", "")

	_, err := c.SolveServiceArea(context.Background(), SolveRequest{Breaks: []float64{5}})
	assert.Error(t, err)

	_, err = c.SolveServiceArea(context.Background(), SolveRequest{Facilities: solveFacilities()})
	assert.Error(t, err)
}

func TestParseTravelDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    TravelDirection
		wantErr bool
	}{
		{"", TravelDirectionFromFacility, false},
		{"from", TravelDirectionFromFacility, false},
		{"from-facility", TravelDirectionFromFacility, false},
		{"TO", TravelDirectionToFacility, false},
		{"to-facility", TravelDirectionToFacility, false},
		{"sideways", "", true},
	}
	for _, tc := range tests {
		got, err := ParseTravelDirection(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
