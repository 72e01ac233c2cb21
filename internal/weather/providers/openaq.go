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
	DefaultOpenAQURL = "https://api.openaq.org/v1/"

	defaultLocationsLimit = 100
	maxLocationsLimit     = 10000
)

// OpenAQProvider implements weather.DirectoryProvider for the OpenAQ v1 API.
type OpenAQProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenAQProvider creates a directory client. An empty baseURL selects the public API.
func NewOpenAQProvider(cfg HTTPClientConfig, baseURL string) *OpenAQProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAQURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &OpenAQProvider{
		name:    "openaq",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("openaq"),
	}
}

func (p *OpenAQProvider) Name() string {
	return p.name
}

// ListCountries returns every country known to the directory.
func (p *OpenAQProvider) ListCountries(ctx context.Context) (out []weather.CountryRecord, err error) {
	defer func(start time.Time) { observe(p.name, "countries", start, err) }(time.Now())

	var payload struct {
		Results []struct {
			Code      string `json:"code"`
			Name      string `json:"name"`
			Cities    uint32 `json:"cities"`
			Locations uint32 `json:"locations"`
		} `json:"results"`
	}
	if err := p.get(ctx, "countries", nil, &payload); err != nil {
		return nil, err
	}

	out = make([]weather.CountryRecord, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.Code == "" || r.Name == "" {
			continue
		}
		out = append(out, weather.CountryRecord{
			Code:      r.Code,
			Name:      r.Name,
			Cities:    r.Cities,
			Locations: r.Locations,
		})
	}
	return out, nil
}

// ListLocations returns up to limit locations of a country. A limit of zero
// or less selects the API default; larger limits are clamped to the API maximum.
func (p *OpenAQProvider) ListLocations(ctx context.Context, countryCode string, limit int) (out []weather.LocationRecord, err error) {
	defer func(start time.Time) { observe(p.name, "locations", start, err) }(time.Now())

	if limit <= 0 {
		limit = defaultLocationsLimit
	}
	if limit > maxLocationsLimit {
		limit = maxLocationsLimit
	}

	values := url.Values{}
	values.Set("country", countryCode)
	values.Set("limit", strconv.Itoa(limit))

	var payload struct {
		Results []struct {
			Location    string               `json:"location"`
			City        string               `json:"city"`
			Country     string               `json:"country"`
			Coordinates *weather.Coordinates `json:"coordinates"`
		} `json:"results"`
	}
	if err := p.get(ctx, "locations", values, &payload); err != nil {
		return nil, err
	}

	out = make([]weather.LocationRecord, 0, len(payload.Results))
	for _, r := range payload.Results {
		code := r.Country
		if code == "" {
			code = countryCode
		}
		out = append(out, weather.LocationRecord{
			Name:        r.Location,
			City:        r.City,
			CountryCode: code,
			Coordinates: r.Coordinates,
		})
	}
	return out, nil
}

func (p *OpenAQProvider) get(ctx context.Context, path string, values url.Values, into any) error {
	buildRequest := func() (*http.Request, error) {
		u := p.baseURL + path
		if len(values) > 0 {
			u = fmt.Sprintf("%s?%s", u, values.Encode())
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("openaq %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("openaq %s: decode: %w", path, err)
	}
	return nil
}
