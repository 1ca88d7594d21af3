package gis

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// TravelMode is a named routing parameter bundle from the platform catalog.
// Raw preserves the full descriptor exactly as the catalog returned it, so
// it can be forwarded verbatim to the solver.
type TravelMode struct {
	Name                   string `json:"name"`
	ID                     string `json:"id"`
	Type                   string `json:"type"`
	Description            string `json:"description"`
	ImpedanceAttributeName string `json:"impedanceAttributeName"`
	TimeAttributeName      string `json:"timeAttributeName"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the named fields and keeps the full descriptor in Raw.
func (m *TravelMode) UnmarshalJSON(data []byte) error {
	type alias TravelMode
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = TravelMode(a)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type travelModesResponse struct {
	SupportedTravelModes []TravelMode `json:"supportedTravelModes"`
	DefaultTravelMode    string       `json:"defaultTravelMode"`
}

// TravelModes fetches the server's travel-mode catalog.
func (c *Client) TravelModes(ctx context.Context) ([]TravelMode, error) {
	var resp travelModesResponse
	if err := c.get(ctx, c.routingUtilURL+"/GetTravelModes", url.Values{}, &resp); err != nil {
		return nil, eris.Wrap(err, "gis: fetch travel modes")
	}
	return resp.SupportedTravelModes, nil
}

// FindTravelMode selects a mode from the catalog by caseless name match.
// An unknown name is an error listing the available modes.
func FindTravelMode(modes []TravelMode, name string) (*TravelMode, error) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for i := range modes {
		if fold.String(modes[i].Name) == want {
			return &modes[i], nil
		}
	}

	available := make([]string, len(modes))
	for i, m := range modes {
		available[i] = m.Name
	}
	return nil, eris.Errorf("gis: unknown travel mode %q (available: %s)", name, strings.Join(available, ", "))
}
