package servicearea

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

// Scenario is a declarative solve description loaded from YAML: which
// facilities, which break rings, and optionally which times of day to
// sweep.
type Scenario struct {
	Name           string    `yaml:"name"`
	Facilities     []string  `yaml:"facilities"`
	Breaks         []float64 `yaml:"breaks"`
	Direction      string    `yaml:"direction"`
	TravelMode     string    `yaml:"travel_mode"`
	TimesOfDay     []string  `yaml:"times_of_day"`
	TimeOfDayIsUTC bool      `yaml:"time_of_day_is_utc"`
}

// timeLayouts are accepted times_of_day formats. Clock-only values resolve
// against today's date.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"15:04",
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, eris.Wrapf(err, "scenario: %s", path)
	}
	return &s, nil
}

// Validate checks the scenario is solvable.
func (s *Scenario) Validate() error {
	if len(s.Facilities) == 0 {
		return eris.New("scenario: at least one facility is required")
	}
	if len(s.Breaks) == 0 {
		return eris.New("scenario: at least one break is required")
	}
	seen := make(map[float64]bool, len(s.Breaks))
	for _, b := range s.Breaks {
		if b <= 0 {
			return eris.Errorf("scenario: break %g must be positive", b)
		}
		if seen[b] {
			return eris.Errorf("scenario: duplicate break %g", b)
		}
		seen[b] = true
	}
	if _, err := gis.ParseTravelDirection(s.Direction); err != nil {
		return err
	}
	if _, err := s.ParseTimes(); err != nil {
		return err
	}
	return nil
}

// TravelDirection returns the wire enum for the scenario's direction.
func (s *Scenario) TravelDirection() (gis.TravelDirection, error) {
	return gis.ParseTravelDirection(s.Direction)
}

// ParseTimes resolves times_of_day entries to timestamps, preserving input
// order.
func (s *Scenario) ParseTimes() ([]time.Time, error) {
	return ParseTimesOfDay(s.TimesOfDay, s.TimeOfDayIsUTC)
}

// ParseTimesOfDay parses a list of time-of-day strings. Clock-only entries
// ("07:30") resolve against today's date, in UTC or local time per utc.
func ParseTimesOfDay(entries []string, utc bool) ([]time.Time, error) {
	loc := time.Local
	if utc {
		loc = time.UTC
	}

	times := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		t, err := parseTimeOfDay(entry, loc)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, nil
}

func parseTimeOfDay(entry string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, entry, loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			now := time.Now().In(loc)
			t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t, nil
	}
	return time.Time{}, eris.Errorf("scenario: cannot parse time of day %q", entry)
}
