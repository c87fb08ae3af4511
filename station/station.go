// Package station defines the monitored entities and the startup-time
// registry that validates them. Registries are ordered and immutable:
// stations exist for the lifetime of the process, none are added or
// removed at runtime.
package station

import (
	"fmt"

	"github.com/kpouget/wunderground2prom/errors"
)

// Weather identifies a single personal weather station.
type Weather struct {
	// ID is the upstream station identifier and the unique registry key.
	ID string `yaml:"id"`
	// Name is a human-readable label used only for logging.
	Name string `yaml:"name"`
}

// Key returns the unique registry key for the station.
func (w Weather) Key() string { return w.ID }

// River identifies a single river gauging station. Flow and height are
// fetched for the same station code.
type River struct {
	// River is the river name label (e.g. "Dordogne").
	River string `yaml:"river"`
	// Station is the gauging site label (e.g. "Argentat").
	Station string `yaml:"station"`
	// ID is the upstream hydrology station code and the unique registry key.
	ID string `yaml:"id"`
}

// Key returns the unique registry key for the station.
func (r River) Key() string { return r.ID }

// NewWeatherRegistry validates the configured weather stations and
// returns them in configuration order.
func NewWeatherRegistry(stations []Weather) ([]Weather, error) {
	if len(stations) == 0 {
		return nil, errors.WrapInvalid(errors.ErrNoStations,
			"WeatherRegistry", "New", "station list validation")
	}

	seen := make(map[string]struct{}, len(stations))
	for _, st := range stations {
		if st.ID == "" {
			return nil, errors.WrapInvalid(
				fmt.Errorf("station %q has no id: %w", st.Name, errors.ErrMissingConfig),
				"WeatherRegistry", "New", "station id validation")
		}
		if _, dup := seen[st.ID]; dup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("station %q: %w", st.ID, errors.ErrDuplicateStation),
				"WeatherRegistry", "New", "station key validation")
		}
		seen[st.ID] = struct{}{}
	}

	out := make([]Weather, len(stations))
	copy(out, stations)
	return out, nil
}

// NewRiverRegistry validates the configured river stations and returns
// them in configuration order.
func NewRiverRegistry(stations []River) ([]River, error) {
	if len(stations) == 0 {
		return nil, errors.WrapInvalid(errors.ErrNoStations,
			"RiverRegistry", "New", "station list validation")
	}

	seen := make(map[string]struct{}, len(stations))
	for _, st := range stations {
		if st.ID == "" {
			return nil, errors.WrapInvalid(
				fmt.Errorf("station %q/%q has no id: %w", st.River, st.Station, errors.ErrMissingConfig),
				"RiverRegistry", "New", "station id validation")
		}
		if _, dup := seen[st.ID]; dup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("station %q: %w", st.ID, errors.ErrDuplicateStation),
				"RiverRegistry", "New", "station key validation")
		}
		seen[st.ID] = struct{}{}
	}

	out := make([]River, len(stations))
	copy(out, stations)
	return out, nil
}

// Keys returns the registry keys of the given stations in order.
func Keys[S interface{ Key() string }](stations []S) []string {
	keys := make([]string, len(stations))
	for i, st := range stations {
		keys[i] = st.Key()
	}
	return keys
}
