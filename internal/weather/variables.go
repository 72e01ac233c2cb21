package weather

// Variable describes one weather attribute exposed under a location.
type Variable struct {
	Name        string
	Description string
	Value       func(Snapshot) any
}

// Variables is the fixed set of weather attributes, in creation order.
var Variables = []Variable{
	{
		Name:        "Latitude",
		Description: "The latitude of a location (in decimal degrees). Positive is north, negative is south.",
		Value:       func(s Snapshot) any { return s.Latitude },
	},
	{
		Name:        "Longitude",
		Description: "The longitude of a location (in decimal degrees). Positive is east, negative is west.",
		Value:       func(s Snapshot) any { return s.Longitude },
	},
	{
		Name:        "Timezone",
		Description: "The IANA timezone name for the requested location.",
		Value:       func(s Snapshot) any { return s.Timezone },
	},
	{
		Name:        "Icon",
		Description: "A machine-readable text icon of this data point, suitable for selecting an icon for display.",
		Value:       func(s Snapshot) any { return s.Icon },
	},
	{
		Name:        "Temperature",
		Description: "The air temperature in degrees Celsius (if units=si during request) or Fahrenheit.",
		Value:       func(s Snapshot) any { return s.Temperature },
	},
	{
		Name:        "ApparentTemperature",
		Description: "The apparent (or \"feels like\") temperature in degrees Celsius (if units=si during request) or Fahrenheit.",
		Value:       func(s Snapshot) any { return s.ApparentTemperature },
	},
	{
		Name:        "Humidity",
		Description: "The relative humidity, between 0 and 1, inclusive.",
		Value:       func(s Snapshot) any { return s.Humidity },
	},
	{
		Name:        "Pressure",
		Description: "The sea-level air pressure in Hectopascals (if units=si during request) or millibars.",
		Value:       func(s Snapshot) any { return s.Pressure },
	},
	{
		Name:        "WindSpeed",
		Description: "The wind speed in meters per second (if units=si during request) or miles per hour.",
		Value:       func(s Snapshot) any { return s.WindSpeed },
	},
	{
		Name:        "WindBearing",
		Description: "The direction that the wind is coming from in degrees, with true north at 0 and progressing clockwise. (If windSpeed is zero, then this value should be ignored.)",
		Value:       func(s Snapshot) any { return s.WindBearing },
	},
	{
		Name:        "CloudCover",
		Description: "The percentage of sky occluded by clouds, between 0 and 1, inclusive.",
		Value:       func(s Snapshot) any { return s.CloudCover },
	},
}

// LookupVariable returns the weather attribute with the given browse name.
func LookupVariable(name string) (Variable, bool) {
	for _, v := range Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
