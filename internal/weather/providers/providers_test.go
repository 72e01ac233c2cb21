package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/airquality-weather/internal/weather"
)

func testHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

func TestOpenAQListCountries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/countries" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[
			{"code":"CA","name":"Canada","cities":12,"locations":250},
			{"code":"","name":"Unknown"},
			{"code":"XK","name":""}
		]}`)
	}))
	defer srv.Close()

	p := NewOpenAQProvider(testHTTPConfig(srv.Client()), srv.URL+"/v1")
	got, err := p.ListCountries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 country, got %d", len(got))
	}
	want := weather.CountryRecord{Code: "CA", Name: "Canada", Cities: 12, Locations: 250}
	if got[0] != want {
		t.Fatalf("expected %+v, got %+v", want, got[0])
	}
}

func TestOpenAQListLocations(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"results":[
			{"location":"Ottawa Downtown","city":"Ottawa","country":"CA","coordinates":{"latitude":45.42,"longitude":-75.69}},
			{"location":"No Coordinates","city":"Ottawa","country":"CA"}
		]}`)
	}))
	defer srv.Close()

	p := NewOpenAQProvider(testHTTPConfig(srv.Client()), srv.URL)

	tests := []struct {
		limit     int
		wantLimit string
	}{
		{0, "limit=100"},
		{250, "limit=250"},
		{50000, "limit=10000"},
	}
	for _, tt := range tests {
		got, err := p.ListLocations(context.Background(), "CA", tt.limit)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(gotQuery, tt.wantLimit) || !strings.Contains(gotQuery, "country=CA") {
			t.Fatalf("limit %d: unexpected query %q", tt.limit, gotQuery)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if got[0].Coordinates == nil || got[0].Coordinates.Latitude != 45.42 {
			t.Fatalf("unexpected coordinates %+v", got[0].Coordinates)
		}
		if got[1].Coordinates != nil || got[1].Valid() {
			t.Fatal("record without coordinates must be invalid")
		}
	}
}

func TestOpenAQServerErrorRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenAQProvider(testHTTPConfig(srv.Client()), srv.URL)
	_, err := p.ListCountries(context.Background())
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected errServerError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewDarkSkyProvider(testHTTPConfig(srv.Client()), "key", "si", srv.URL)
	_, err := p.FetchCurrent(context.Background(), 1, 2)
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestDarkSkyFetchCurrent(t *testing.T) {
	tests := []struct {
		name        string
		windSpeed   string
		wantBearing float64
	}{
		{"bearing kept with wind", "4.2", 270},
		{"bearing ignored when calm", "0", 0},
		{"bearing ignored below threshold", "0.0005", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				fmt.Fprintf(w, `{"latitude":45.42,"longitude":-75.69,"timezone":"America/Toronto",
					"currently":{"icon":"snow","temperature":-8.5,"apparentTemperature":-14.1,
					"humidity":0.82,"pressure":1021.3,"windSpeed":%s,"windBearing":270,"cloudCover":0.9}}`, tt.windSpeed)
			}))
			defer srv.Close()

			p := NewDarkSkyProvider(testHTTPConfig(srv.Client()), "secret", "si", srv.URL+"/forecast")
			snap, err := p.FetchCurrent(context.Background(), 45.42, -75.69)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if gotPath != "/forecast/secret/45.42,-75.69" {
				t.Fatalf("unexpected path %q", gotPath)
			}
			if !strings.Contains(gotQuery, "exclude=minutely%2Chourly%2Cdaily") || !strings.Contains(gotQuery, "units=si") {
				t.Fatalf("unexpected query %q", gotQuery)
			}
			if snap.Timezone != "America/Toronto" || snap.Icon != "snow" || snap.Temperature != -8.5 || snap.Humidity != 0.82 {
				t.Fatalf("unexpected snapshot %+v", snap)
			}
			if snap.WindBearing != tt.wantBearing {
				t.Fatalf("expected bearing %v, got %v", tt.wantBearing, snap.WindBearing)
			}
		})
	}
}

func TestDarkSkyMissingCurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"latitude":1,"longitude":2}`)
	}))
	defer srv.Close()

	p := NewDarkSkyProvider(testHTTPConfig(srv.Client()), "secret", "si", srv.URL)
	if _, err := p.FetchCurrent(context.Background(), 1, 2); !errors.Is(err, errEmptyResponse) {
		t.Fatalf("expected errEmptyResponse, got %v", err)
	}
}

func TestOpenMeteoFetchCurrent(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"latitude":45.4,"longitude":-75.7,"timezone":"America/Toronto",
			"current":{"temperature_2m":20.5,"apparent_temperature":19,"relative_humidity_2m":65,
			"pressure_msl":1012,"wind_speed_10m":3,"wind_direction_10m":180,"cloud_cover":40,
			"weather_code":2,"is_day":1}}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(testHTTPConfig(srv.Client()), "us", srv.URL)
	snap, err := p.FetchCurrent(context.Background(), 45.4, -75.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "temperature_unit=fahrenheit") || !strings.Contains(gotQuery, "wind_speed_unit=mph") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if snap.Humidity != 0.65 || snap.CloudCover != 0.4 {
		t.Fatalf("expected fractional humidity and cloud cover, got %+v", snap)
	}
	if snap.Icon != "partly-cloudy-day" || snap.WindBearing != 180 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMapOpenMeteoIcon(t *testing.T) {
	tests := []struct {
		code  int
		isDay bool
		want  string
	}{
		{0, true, "clear-day"},
		{0, false, "clear-night"},
		{3, true, "cloudy"},
		{45, true, "fog"},
		{57, true, "sleet"},
		{61, true, "rain"},
		{73, true, "snow"},
		{95, true, "rain"},
	}
	for _, tt := range tests {
		if got := mapOpenMeteoIcon(tt.code, tt.isDay); got != tt.want {
			t.Fatalf("code %d: expected %q, got %q", tt.code, tt.want, got)
		}
	}
}

type fakeTimezone struct{ name string }

func (f fakeTimezone) GetTimezone(lat, lon float64) (string, error) {
	if f.name == "" {
		return "", errors.New("unknown")
	}
	return f.name, nil
}

type fixedProvider struct{ snap weather.Snapshot }

func (f fixedProvider) Name() string { return "fixed" }

func (f fixedProvider) FetchCurrent(context.Context, float64, float64) (weather.Snapshot, error) {
	return f.snap, nil
}

func TestTimezoneFallback(t *testing.T) {
	p := WithTimezoneFallback(fixedProvider{}, fakeTimezone{name: "Europe/Paris"})
	snap, err := p.FetchCurrent(context.Background(), 48.85, 2.35)
	if err != nil || snap.Timezone != "Europe/Paris" {
		t.Fatalf("expected fallback timezone, got %q, %v", snap.Timezone, err)
	}

	p = WithTimezoneFallback(fixedProvider{snap: weather.Snapshot{Timezone: "UTC"}}, fakeTimezone{name: "Europe/Paris"})
	if snap, _ := p.FetchCurrent(context.Background(), 0, 0); snap.Timezone != "UTC" {
		t.Fatalf("provider timezone must win, got %q", snap.Timezone)
	}

	if p := WithTimezoneFallback(fixedProvider{}, nil); p.Name() != "fixed" {
		t.Fatal("expected provider unchanged without timezone service")
	}
}
