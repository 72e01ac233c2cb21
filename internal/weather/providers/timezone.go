package providers

import (
	"context"

	"github.com/i474232898/airquality-weather/internal/timezone"
	"github.com/i474232898/airquality-weather/internal/weather"
)

// TimezoneFallback fills in the timezone when the wrapped provider leaves it empty.
type TimezoneFallback struct {
	weather.Provider
	tz timezone.Service
}

// WithTimezoneFallback wraps p. A nil tz returns p unchanged.
func WithTimezoneFallback(p weather.Provider, tz timezone.Service) weather.Provider {
	if tz == nil {
		return p
	}
	return &TimezoneFallback{Provider: p, tz: tz}
}

func (t *TimezoneFallback) FetchCurrent(ctx context.Context, lat, lon float64) (weather.Snapshot, error) {
	snap, err := t.Provider.FetchCurrent(ctx, lat, lon)
	if err != nil || snap.Timezone != "" {
		return snap, err
	}
	if name, tzErr := t.tz.GetTimezone(lat, lon); tzErr == nil {
		snap.Timezone = name
	}
	return snap, nil
}
