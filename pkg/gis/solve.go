package gis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// TravelDirection controls whether the solver measures travel away from or
// toward the facilities.
type TravelDirection string

const (
	TravelDirectionFromFacility TravelDirection = "esriNATravelDirectionFromFacility"
	TravelDirectionToFacility   TravelDirection = "esriNATravelDirectionToFacility"
)

// ParseTravelDirection maps the human-facing direction names to the wire
// enum. Accepts "from-facility"/"from" and "to-facility"/"to".
func ParseTravelDirection(s string) (TravelDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "from", "from-facility":
		return TravelDirectionFromFacility, nil
	case "to", "to-facility":
		return TravelDirectionToFacility, nil
	default:
		return "", eris.Errorf("gis: invalid travel direction %q", s)
	}
}

// SolveRequest holds the parameters for one service-area solve.
type SolveRequest struct {
	Facilities PointFeatureSet
	// Breaks are drive-time thresholds in minutes, one concentric ring each.
	Breaks    []float64
	Direction TravelDirection
	// Mode is optional; when nil the server's default mode applies.
	Mode *TravelMode
	// TimeOfDay parameterizes traffic-aware modes. Optional.
	TimeOfDay      *time.Time
	TimeOfDayIsUTC bool
}

// SolveResult is the solver response: the polygon collection plus any
// diagnostic messages.
type SolveResult struct {
	Polygons PolygonFeatureSet `json:"saPolygons"`
	Messages []NAMessage       `json:"messages"`
}

// SolveError reports error-severity diagnostic messages from the solver.
// The platform surfaces parameter rejections this way inside an otherwise
// well-formed response.
type SolveError struct {
	Messages []NAMessage
}

func (e *SolveError) Error() string {
	descs := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		descs[i] = m.Description
	}
	return fmt.Sprintf("gis: solve failed: %s", strings.Join(descs, "; "))
}

// SolveServiceArea submits one service-area solve and returns the parsed
// result. Error-severity solver messages fail the call with a *SolveError.
func (c *Client) SolveServiceArea(ctx context.Context, req SolveRequest) (*SolveResult, error) {
	if len(req.Facilities.Features) == 0 {
		return nil, eris.New("gis: solve requires at least one facility")
	}
	if len(req.Breaks) == 0 {
		return nil, eris.New("gis: solve requires at least one break")
	}

	facilities, err := json.Marshal(req.Facilities)
	if err != nil {
		return nil, eris.Wrap(err, "gis: marshal facilities")
	}

	direction := req.Direction
	if direction == "" {
		direction = TravelDirectionFromFacility
	}

	form := url.Values{
		"facilities":      {string(facilities)},
		"defaultBreaks":   {formatBreaks(req.Breaks)},
		"travelDirection": {string(direction)},
	}
	if req.Mode != nil {
		form.Set("travelMode", string(req.Mode.Raw))
	}
	if req.TimeOfDay != nil {
		form.Set("timeOfDay", strconv.FormatInt(req.TimeOfDay.UnixMilli(), 10))
		form.Set("timeOfDayIsUTC", strconv.FormatBool(req.TimeOfDayIsUTC))
	}

	var result SolveResult
	if err := c.post(ctx, c.serviceAreaURL+"/solveServiceArea", form, &result); err != nil {
		return nil, eris.Wrap(err, "gis: solve service area")
	}

	if errs := errorMessages(result.Messages); len(errs) > 0 {
		return nil, &SolveError{Messages: errs}
	}
	return &result, nil
}

// formatBreaks renders break minutes as the comma-separated list the solver
// expects, trimming trailing zeros.
func formatBreaks(breaks []float64) string {
	parts := make([]string, len(breaks))
	for i, b := range breaks {
		parts[i] = strconv.FormatFloat(b, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// errorMessages filters solver messages down to error severity.
func errorMessages(msgs []NAMessage) []NAMessage {
	var errs []NAMessage
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Type), "error") {
			errs = append(errs, m)
		}
	}
	return errs
}
