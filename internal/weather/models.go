package weather

import (
	"time"
)

// State tracks materialization of a country or location in the address space.
// Transitions only move forward.
type State int

const (
	NotMaterialized State = iota
	Materializing
	Materialized
)

func (s State) String() string {
	switch s {
	case Materializing:
		return "materializing"
	case Materialized:
		return "materialized"
	default:
		return "not-materialized"
	}
}

// AttributeState tracks creation of a location's weather variable nodes.
type AttributeState int

const (
	AttributesNone AttributeState = iota
	AttributesCreating
	AttributesCreated
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates fall inside the WGS84 range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Country is a directory country together with the locations loaded for it.
type Country struct {
	Code           string
	Name           string
	Cities         uint32
	LocationsCount uint32

	State     State
	Locations map[string]*Location
}

// Location is an air-quality monitoring station and its latest weather.
type Location struct {
	Name        string
	City        string
	CountryCode string
	Coordinates Coordinates

	State      State
	Attributes AttributeState

	// WeatherFetched is set on the first successful fetch; LastFetch is the
	// time of the most recent one.
	WeatherFetched bool
	LastFetch      time.Time
	Snapshot       Snapshot
}

// Key returns a canonical string key for indexing this location in stores.
func (l *Location) Key() string {
	return l.CountryCode + ":" + l.Name
}

// Snapshot is the current weather at a location, replaced wholesale on refresh.
type Snapshot struct {
	Latitude            float64 `json:"latitude" msgpack:"latitude"`
	Longitude           float64 `json:"longitude" msgpack:"longitude"`
	Timezone            string  `json:"timezone" msgpack:"timezone"`
	Icon                string  `json:"icon" msgpack:"icon"`
	Temperature         float64 `json:"temperature" msgpack:"temperature"`
	ApparentTemperature float64 `json:"apparentTemperature" msgpack:"apparentTemperature"`
	Humidity            float64 `json:"humidity" msgpack:"humidity"`
	Pressure            float64 `json:"pressure" msgpack:"pressure"`
	WindSpeed           float64 `json:"windSpeed" msgpack:"windSpeed"`
	WindBearing         float64 `json:"windBearing" msgpack:"windBearing"`
	CloudCover          float64 `json:"cloudCover" msgpack:"cloudCover"`
}

// CountryRecord is a country as reported by a directory provider.
type CountryRecord struct {
	Code      string
	Name      string
	Cities    uint32
	Locations uint32
}

// LocationRecord is a monitoring location as reported by a directory provider.
// Coordinates is nil when the directory omitted them.
type LocationRecord struct {
	Name        string
	City        string
	CountryCode string
	Coordinates *Coordinates
}

// Valid reports whether the record can be added to a country.
func (r LocationRecord) Valid() bool {
	return r.Name != "" && r.Coordinates != nil && r.Coordinates.Valid()
}
