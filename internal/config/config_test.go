package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadFileSettings(t *testing.T) {
	path := writeSettings(t, `{
		"opc_ua_server": {"port-number": 4840, "endpoint-url": "opc.tcp://plant:4840", "host-name": "plant"},
		"darksky_api": {"api_key": "abc123", "param_units": "us", "interval_download": 5}
	}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DarkSkyAPIKey != "abc123" || cfg.Units != "us" {
		t.Fatalf("unexpected darksky settings %+v", cfg)
	}
	if cfg.RefreshInterval != 5*time.Minute {
		t.Fatalf("expected 5m interval, got %s", cfg.RefreshInterval)
	}
	if cfg.Server != (ServerConfig{Port: 4840, EndpointURL: "opc.tcp://plant:4840", HostName: "plant"}) {
		t.Fatalf("unexpected server settings %+v", cfg.Server)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", cfg.Warnings)
	}
}

func TestLoadFileDefaultsAndFallbacks(t *testing.T) {
	path := writeSettings(t, `{"darksky_api": {"api_key": "abc123", "param_units": "metric", "interval_download": 90}}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Units != DefaultUnits {
		t.Fatalf("expected default units, got %q", cfg.Units)
	}
	if cfg.RefreshInterval != DefaultIntervalMinutes*time.Minute {
		t.Fatalf("expected default interval, got %s", cfg.RefreshInterval)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", cfg.Warnings)
	}
	if cfg.Server.Port != DefaultServerPort || cfg.Server.EndpointURL != DefaultEndpointURL || cfg.Server.HostName != DefaultHostName {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if len(cfg.WeatherProviders) != 2 || cfg.WeatherProviders[0] != ProviderDarkSky {
		t.Fatalf("unexpected providers %v", cfg.WeatherProviders)
	}
	if cfg.LocationsRefreshInterval != 0 || cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected durations %s, %s", cfg.LocationsRefreshInterval, cfg.HTTPTimeout)
	}
}

func TestLoadFileInvalidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"inner space", "abc 123"},
		{"tab", "abc\t123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DARKSKY_API_KEY", tt.key)
			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
			if !errors.Is(err, ErrInvalidAPIKey) {
				t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
			}
		})
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	path := writeSettings(t, `{"darksky_api": {"api_key": "from-file"}}`)
	t.Setenv("DARKSKY_API_KEY", "from-env")
	t.Setenv("WEATHER_PROVIDERS", "openmeteo, darksky")
	t.Setenv("LOCATIONS_REFRESH_INTERVAL", "6h")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DarkSkyAPIKey != "from-env" {
		t.Fatalf("expected env key, got %q", cfg.DarkSkyAPIKey)
	}
	if len(cfg.WeatherProviders) != 2 || cfg.WeatherProviders[0] != ProviderOpenMeteo {
		t.Fatalf("unexpected providers %v", cfg.WeatherProviders)
	}
	if cfg.LocationsRefreshInterval != 6*time.Hour {
		t.Fatalf("unexpected refresh interval %s", cfg.LocationsRefreshInterval)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr)
	}
}

func TestLoadFileOpenMeteoWithoutKey(t *testing.T) {
	t.Setenv("WEATHER_PROVIDERS", "openmeteo")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("key is not required without darksky: %v", err)
	}
	if cfg.UsesProvider(ProviderDarkSky) {
		t.Fatal("darksky must not be configured")
	}
}

func TestLoadFileUnknownProvider(t *testing.T) {
	t.Setenv("DARKSKY_API_KEY", "abc")
	t.Setenv("WEATHER_PROVIDERS", "darksky,metoffice")

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
