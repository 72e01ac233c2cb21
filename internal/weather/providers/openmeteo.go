package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airquality-weather/internal/weather"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const openMeteoCurrentFields = "temperature_2m,apparent_temperature,relative_humidity_2m," +
	"pressure_msl,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code,is_day"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key and serves as a fallback for Dark Sky.
type OpenMeteoProvider struct {
	name    string
	units   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, units, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		units:   units,
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, lat, lon float64) (snap weather.Snapshot, err error) {
	defer func(start time.Time) { observe(p.name, "current", start, err) }(time.Now())

	tempUnit, windUnit := openMeteoUnits(p.units)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("current", openMeteoCurrentFields)
		values.Set("timezone", "auto")
		values.Set("temperature_unit", tempUnit)
		values.Set("wind_speed_unit", windUnit)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Current   *struct {
			Temperature         float64 `json:"temperature_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			Humidity            float64 `json:"relative_humidity_2m"`
			Pressure            float64 `json:"pressure_msl"`
			WindSpeed           float64 `json:"wind_speed_10m"`
			WindDirection       float64 `json:"wind_direction_10m"`
			CloudCover          float64 `json:"cloud_cover"`
			WeatherCode         int     `json:"weather_code"`
			IsDay               int     `json:"is_day"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("openmeteo: decode: %w", err)
	}
	if payload.Current == nil {
		return weather.Snapshot{}, fmt.Errorf("openmeteo: %w: no current conditions", errEmptyResponse)
	}

	cur := payload.Current
	snap = weather.Snapshot{
		Latitude:            payload.Latitude,
		Longitude:           payload.Longitude,
		Timezone:            payload.Timezone,
		Icon:                mapOpenMeteoIcon(cur.WeatherCode, cur.IsDay == 1),
		Temperature:         cur.Temperature,
		ApparentTemperature: cur.ApparentTemperature,
		// Open-Meteo reports percentages; snapshots carry fractions.
		Humidity:   cur.Humidity / 100,
		Pressure:   cur.Pressure,
		WindSpeed:  cur.WindSpeed,
		CloudCover: cur.CloudCover / 100,
	}
	if cur.WindSpeed > minWindSpeedForBearing {
		snap.WindBearing = cur.WindDirection
	}
	return snap, nil
}

// openMeteoUnits maps a Dark Sky unit system to Open-Meteo temperature and
// wind speed units.
func openMeteoUnits(units string) (temperature, wind string) {
	switch units {
	case "us":
		return "fahrenheit", "mph"
	case "uk2":
		return "celsius", "mph"
	case "ca":
		return "celsius", "kmh"
	default:
		return "celsius", "ms"
	}
}

// mapOpenMeteoIcon maps a WMO weather code to a Dark Sky icon name.
func mapOpenMeteoIcon(code int, isDay bool) string {
	switch {
	case code == 0:
		if isDay {
			return "clear-day"
		}
		return "clear-night"
	case code >= 1 && code <= 2:
		if isDay {
			return "partly-cloudy-day"
		}
		return "partly-cloudy-night"
	case code == 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code == 56 || code == 57 || code == 66 || code == 67:
		return "sleet"
	case (code >= 51 && code <= 65) || (code >= 80 && code <= 82) || code >= 95:
		return "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	default:
		return ""
	}
}
