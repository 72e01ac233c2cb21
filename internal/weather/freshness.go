package weather

import "time"

// IsStale reports whether loc needs a weather refetch at now.
func IsStale(loc *Location, now time.Time, interval time.Duration) bool {
	return !loc.WeatherFetched || now.Sub(loc.LastFetch) >= interval
}
