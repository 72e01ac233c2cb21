package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airquality-weather/internal/weather"
)

const (
	DefaultDarkSkyURL = "https://api.darksky.net/forecast/"

	// Below this speed the reported bearing is meaningless.
	minWindSpeedForBearing = 0.001
)

// DarkSkyProvider implements weather.Provider for the Dark Sky forecast API.
type DarkSkyProvider struct {
	name    string
	apiKey  string
	units   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewDarkSkyProvider creates a Dark Sky client. An empty baseURL selects the public API.
func NewDarkSkyProvider(cfg HTTPClientConfig, apiKey, units, baseURL string) *DarkSkyProvider {
	if baseURL == "" {
		baseURL = DefaultDarkSkyURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &DarkSkyProvider{
		name:    "darksky",
		apiKey:  apiKey,
		units:   units,
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("darksky"),
	}
}

func (p *DarkSkyProvider) Name() string {
	return p.name
}

// FetchCurrent returns the current conditions at lat, lon.
func (p *DarkSkyProvider) FetchCurrent(ctx context.Context, lat, lon float64) (snap weather.Snapshot, err error) {
	defer func(start time.Time) { observe(p.name, "current", start, err) }(time.Now())

	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("darksky requires an api key")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("exclude", "minutely,hourly,daily")
		values.Set("units", p.units)

		u := fmt.Sprintf("%s%s/%s,%s?%s", p.baseURL, url.PathEscape(p.apiKey),
			strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64), values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
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
		Currently *struct {
			Icon                string  `json:"icon"`
			Temperature         float64 `json:"temperature"`
			ApparentTemperature float64 `json:"apparentTemperature"`
			Humidity            float64 `json:"humidity"`
			Pressure            float64 `json:"pressure"`
			WindSpeed           float64 `json:"windSpeed"`
			WindBearing         float64 `json:"windBearing"`
			CloudCover          float64 `json:"cloudCover"`
		} `json:"currently"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("darksky: decode: %w", err)
	}
	if payload.Currently == nil {
		return weather.Snapshot{}, fmt.Errorf("darksky: %w: no current conditions", errEmptyResponse)
	}

	cur := payload.Currently
	snap = weather.Snapshot{
		Latitude:            payload.Latitude,
		Longitude:           payload.Longitude,
		Timezone:            payload.Timezone,
		Icon:                cur.Icon,
		Temperature:         cur.Temperature,
		ApparentTemperature: cur.ApparentTemperature,
		Humidity:            cur.Humidity,
		Pressure:            cur.Pressure,
		WindSpeed:           cur.WindSpeed,
		CloudCover:          cur.CloudCover,
	}
	if cur.WindSpeed > minWindSpeedForBearing {
		snap.WindBearing = cur.WindBearing
	}
	return snap, nil
}
