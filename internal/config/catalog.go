package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// City is one selectable entry of the dashboard.
type City struct {
	Name      string `mapstructure:"name" json:"name"`
	Title     string `mapstructure:"title" json:"title"`
	StationID string `mapstructure:"station_id" json:"stationId"`
}

// Catalog is the static dashboard configuration: the selectable cities, the
// selectable years and the startup selection. It is built once and never
// mutated; accessors return copies.
type Catalog struct {
	cities      map[string]City
	names       []string
	firstYear   int
	lastYear    int
	defaultCity string
	defaultYear int
}

var (
	// ErrUnknownCity is returned for a city that is not in the catalog.
	ErrUnknownCity = errors.New("unknown city")

	// ErrYearOutOfRange is returned for a year outside the catalog range.
	ErrYearOutOfRange = errors.New("year out of range")
)

// NewCatalog validates and freezes the dashboard configuration.
func NewCatalog(cities []City, firstYear, lastYear int, defaultCity string, defaultYear int) (*Catalog, error) {
	if len(cities) == 0 {
		return nil, fmt.Errorf("catalog: at least one city is required")
	}
	if firstYear > lastYear {
		return nil, fmt.Errorf("catalog: first year %d after last year %d", firstYear, lastYear)
	}

	c := &Catalog{
		cities:      make(map[string]City, len(cities)),
		firstYear:   firstYear,
		lastYear:    lastYear,
		defaultCity: defaultCity,
		defaultYear: defaultYear,
	}
	for _, city := range cities {
		city.Name = strings.TrimSpace(city.Name)
		city.StationID = strings.TrimSpace(city.StationID)
		if city.Name == "" || city.StationID == "" {
			return nil, fmt.Errorf("catalog: city name and station id are required")
		}
		if _, dup := c.cities[city.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate city %q", city.Name)
		}
		if city.Title == "" {
			city.Title = city.Name
		}
		c.cities[city.Name] = city
		c.names = append(c.names, city.Name)
	}
	sort.Strings(c.names)

	if _, err := c.Resolve(defaultCity, defaultYear); err != nil {
		return nil, fmt.Errorf("catalog: default selection: %w", err)
	}
	return c, nil
}

// Resolve looks up a city and checks the year against the catalog range.
func (c *Catalog) Resolve(name string, year int) (City, error) {
	city, ok := c.cities[name]
	if !ok {
		return City{}, fmt.Errorf("%w: %q", ErrUnknownCity, name)
	}
	if !c.HasYear(year) {
		return City{}, fmt.Errorf("%w: %d not in %d-%d", ErrYearOutOfRange, year, c.firstYear, c.lastYear)
	}
	return city, nil
}

// HasCity reports whether name is a selectable city.
func (c *Catalog) HasCity(name string) bool {
	_, ok := c.cities[name]
	return ok
}

// HasYear reports whether year is selectable.
func (c *Catalog) HasYear(year int) bool {
	return year >= c.firstYear && year <= c.lastYear
}

// Cities returns the cities sorted by name.
func (c *Catalog) Cities() []City {
	out := make([]City, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.cities[n])
	}
	return out
}

// Years returns the selectable years in ascending order.
func (c *Catalog) Years() []int {
	out := make([]int, 0, c.lastYear-c.firstYear+1)
	for y := c.firstYear; y <= c.lastYear; y++ {
		out = append(out, y)
	}
	return out
}

// Default returns the startup selection.
func (c *Catalog) Default() (string, int) {
	return c.defaultCity, c.defaultYear
}

// StationIDs returns the station of every city.
func (c *Catalog) StationIDs() []string {
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.cities[n].StationID)
	}
	return out
}
