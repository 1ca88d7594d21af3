package gis

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// ErrNoMatch is returned when geocoding produces no candidates for a query.
// Callers must check for it before using any coordinates.
var ErrNoMatch = errors.New("gis: no geocode match")

// Candidate is one ranked geocoding result.
type Candidate struct {
	Address  string `json:"address"`
	Location struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"location"`
	Score      float64        `json:"score"`
	Attributes map[string]any `json:"attributes"`
}

type geocodeResponse struct {
	SpatialReference SpatialReference `json:"spatialReference"`
	Candidates       []Candidate      `json:"candidates"`
}

// GeocodeCandidates resolves a free-text place to a ranked candidate list.
// The list may be empty; Geocode is the convenience wrapper that treats that
// as ErrNoMatch.
func (c *Client) GeocodeCandidates(ctx context.Context, query string, maxResults int) ([]Candidate, error) {
	if query == "" {
		return nil, eris.New("gis: geocode query is empty")
	}
	params := url.Values{
		"SingleLine": {query},
		"outFields":  {"*"},
	}
	if maxResults > 0 {
		params.Set("maxLocations", strconv.Itoa(maxResults))
	}

	var resp geocodeResponse
	if err := c.get(ctx, c.geocodeURL+"/findAddressCandidates", params, &resp); err != nil {
		return nil, eris.Wrapf(err, "gis: geocode %q", query)
	}
	return resp.Candidates, nil
}

// Geocode resolves a free-text place to its top-ranked candidate.
// Returns ErrNoMatch (wrapped with the query) when nothing matches.
func (c *Client) Geocode(ctx context.Context, query string) (*Candidate, error) {
	candidates, err := c.GeocodeCandidates(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, eris.Wrapf(ErrNoMatch, "gis: geocode %q", query)
	}
	return &candidates[0], nil
}
