package store

import (
	"errors"
	"sort"
	"time"

	"github.com/i474232898/airquality-weather/internal/weather"
)

var (
	// ErrNotFound is returned by mutators when the country or location is unknown.
	ErrNotFound = errors.New("entity not found")
)

// Cache holds the countries and locations known to the resolver.
//
// Cache is not safe for concurrent use. It is owned by the address space
// processing loop and must only be touched from there.
type Cache struct {
	// key: country code
	countries map[string]*weather.Country
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		countries: make(map[string]*weather.Country),
	}
}

// Country returns the country with the given code.
func (c *Cache) Country(code string) (*weather.Country, bool) {
	country, ok := c.countries[code]
	return country, ok
}

// Countries returns every cached country ordered by code.
func (c *Cache) Countries() []*weather.Country {
	out := make([]*weather.Country, 0, len(c.countries))
	for _, country := range c.countries {
		out = append(out, country)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ReplaceCountries makes records the cached country set. Countries still
// present keep their identity, state and locations; the rest are dropped.
// Records without a code or name are ignored.
func (c *Cache) ReplaceCountries(records []weather.CountryRecord) {
	next := make(map[string]*weather.Country, len(records))
	for _, rec := range records {
		if rec.Code == "" || rec.Name == "" {
			continue
		}
		if _, dup := next[rec.Code]; dup {
			continue
		}

		country, ok := c.countries[rec.Code]
		if !ok {
			country = &weather.Country{
				Code:      rec.Code,
				Locations: make(map[string]*weather.Location),
			}
		}
		country.Name = rec.Name
		country.Cities = rec.Cities
		country.LocationsCount = rec.Locations
		next[rec.Code] = country
	}
	c.countries = next
}

// Location returns the location with the given name in the given country.
func (c *Cache) Location(code, name string) (*weather.Location, bool) {
	country, ok := c.countries[code]
	if !ok {
		return nil, false
	}
	loc, ok := country.Locations[name]
	return loc, ok
}

// ReplaceLocations makes records the location set of the country. Records
// with invalid or missing coordinates are skipped. Locations still present
// keep their identity, state and cached weather.
func (c *Cache) ReplaceLocations(code string, records []weather.LocationRecord) error {
	country, ok := c.countries[code]
	if !ok {
		return ErrNotFound
	}

	next := make(map[string]*weather.Location, len(records))
	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		if _, dup := next[rec.Name]; dup {
			continue
		}

		loc, ok := country.Locations[rec.Name]
		if !ok {
			loc = &weather.Location{
				Name:        rec.Name,
				CountryCode: code,
			}
		}
		loc.City = rec.City
		loc.Coordinates = *rec.Coordinates
		next[rec.Name] = loc
	}
	country.Locations = next
	return nil
}

// UpdateWeather stores snap as the location's latest weather, fetched at now.
func (c *Cache) UpdateWeather(code, name string, snap weather.Snapshot, now time.Time) error {
	loc, ok := c.Location(code, name)
	if !ok {
		return ErrNotFound
	}
	loc.Snapshot = snap
	loc.WeatherFetched = true
	loc.LastFetch = now
	return nil
}

// KnownLocations returns a predicate over the country's location names, or
// nil when the country has no locations yet.
func (c *Cache) KnownLocations(code string) func(name string) bool {
	country, ok := c.countries[code]
	if !ok || len(country.Locations) == 0 {
		return nil
	}
	return func(name string) bool {
		_, ok := country.Locations[name]
		return ok
	}
}
