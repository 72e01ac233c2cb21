package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/airquality-weather/internal/common"
)

const (
	DefaultUnits           = "si"
	DefaultIntervalMinutes = 10
	DefaultServerPort      = 48484
	DefaultEndpointURL     = "opc.tcp://localhost:48484"
	DefaultHostName        = "localhost"

	ProviderDarkSky   = "darksky"
	ProviderOpenMeteo = "openmeteo"
)

// ErrInvalidAPIKey is returned when the Dark Sky key is missing or malformed.
var ErrInvalidAPIKey = errors.New("invalid darksky api key")

// ServerConfig holds the address space endpoint parameters.
type ServerConfig struct {
	Port        int
	EndpointURL string
	HostName    string
}

// RedisConfig configures the optional snapshot mirror. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	DarkSkyAPIKey string
	Units         string

	// RefreshInterval is the weather time-to-live per location.
	RefreshInterval time.Duration

	// WeatherProviders lists weather sources in fallback order.
	WeatherProviders []string

	OpenAQURL    string
	DarkSkyURL   string
	OpenMeteoURL string
	HTTPTimeout  time.Duration

	// LocationsRefreshInterval re-reads materialized location lists (0 = never).
	LocationsRefreshInterval time.Duration

	Server   ServerConfig
	Redis    RedisConfig
	Port     string
	LogLevel string

	// Warnings lists settings that were invalid and replaced by defaults.
	Warnings []string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return !common.HasAny(fl.Field().String(), " ", "\t", "\n", "\r", "\v", "\f")
	})
	return v
}

// Load reads .env, then the settings file named by SETTINGS_FILE
// (default settings.json), with environment overrides.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	return LoadFile(getenvDefault("SETTINGS_FILE", "settings.json"))
}

// LoadFile reads settings from path. A missing file is not an error.
func LoadFile(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	cfg := &AppConfig{
		DarkSkyAPIKey: v.GetString("darksky_api.api_key"),
		Units:         v.GetString("darksky_api.param_units"),
		OpenAQURL:     v.GetString("openaq_api.endpoint"),
		DarkSkyURL:    v.GetString("darksky_api.endpoint"),
		OpenMeteoURL:  v.GetString("openmeteo_api.endpoint"),
		HTTPTimeout:   v.GetDuration("http.timeout"),
		Server: ServerConfig{
			Port:        v.GetInt("opc_ua_server.port-number"),
			EndpointURL: v.GetString("opc_ua_server.endpoint-url"),
			HostName:    v.GetString("opc_ua_server.host-name"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Port:                     v.GetString("gateway.port"),
		LogLevel:                 v.GetString("log.level"),
		LocationsRefreshInterval: v.GetDuration("openaq_api.refresh_interval"),
	}

	if err := validate.Var(cfg.Units, "oneof=auto ca uk2 us si"); err != nil {
		cfg.warn("darksky_api.param_units %q is not one of auto, ca, uk2, us, si; using %q", cfg.Units, DefaultUnits)
		cfg.Units = DefaultUnits
	}

	minutes := v.GetInt("darksky_api.interval_download")
	if err := validate.Var(minutes, "min=1,max=60"); err != nil {
		cfg.warn("darksky_api.interval_download %d outside 1-60; using %d", minutes, DefaultIntervalMinutes)
		minutes = DefaultIntervalMinutes
	}
	cfg.RefreshInterval = time.Duration(minutes) * time.Minute

	if cfg.HTTPTimeout <= 0 {
		cfg.warn("http.timeout must be positive; using 30s")
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.LocationsRefreshInterval < 0 {
		return nil, fmt.Errorf("invalid LOCATIONS_REFRESH_INTERVAL: %s", cfg.LocationsRefreshInterval)
	}

	providers, err := parseProviders(v.GetString("weather.providers"))
	if err != nil {
		return nil, err
	}
	cfg.WeatherProviders = providers

	if cfg.UsesProvider(ProviderDarkSky) {
		if err := validate.Var(cfg.DarkSkyAPIKey, "required,nowhitespace"); err != nil {
			return nil, fmt.Errorf("%w: key must be non-empty and contain no whitespace", ErrInvalidAPIKey)
		}
	}

	return cfg, nil
}

// UsesProvider reports whether name is among the configured weather providers.
func (c *AppConfig) UsesProvider(name string) bool {
	for _, p := range c.WeatherProviders {
		if p == name {
			return true
		}
	}
	return false
}

func (c *AppConfig) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("opc_ua_server.port-number", DefaultServerPort)
	v.SetDefault("opc_ua_server.endpoint-url", DefaultEndpointURL)
	v.SetDefault("opc_ua_server.host-name", DefaultHostName)
	v.SetDefault("darksky_api.param_units", DefaultUnits)
	v.SetDefault("darksky_api.interval_download", DefaultIntervalMinutes)
	v.SetDefault("weather.providers", ProviderDarkSky+","+ProviderOpenMeteo)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("openaq_api.refresh_interval", "0")
	v.SetDefault("gateway.port", "8080")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"darksky_api.api_key":           "DARKSKY_API_KEY",
		"darksky_api.param_units":       "WEATHER_UNITS",
		"darksky_api.interval_download": "WEATHER_INTERVAL_MINUTES",
		"darksky_api.endpoint":          "DARKSKY_API_URL",
		"openaq_api.endpoint":           "OPENAQ_API_URL",
		"openaq_api.refresh_interval":   "LOCATIONS_REFRESH_INTERVAL",
		"openmeteo_api.endpoint":        "OPENMETEO_API_URL",
		"weather.providers":             "WEATHER_PROVIDERS",
		"http.timeout":                  "HTTP_TIMEOUT",
		"opc_ua_server.port-number":     "SERVER_PORT",
		"opc_ua_server.endpoint-url":    "SERVER_ENDPOINT_URL",
		"opc_ua_server.host-name":       "SERVER_HOST_NAME",
		"redis.addr":                    "REDIS_ADDR",
		"redis.password":                "REDIS_PASSWORD",
		"redis.db":                      "REDIS_DB",
		"gateway.port":                  "PORT",
		"log.level":                     "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

func parseProviders(raw string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if err := validate.Var(p, "oneof=darksky openmeteo"); err != nil {
			return nil, fmt.Errorf("invalid WEATHER_PROVIDERS entry %q", p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("invalid WEATHER_PROVIDERS: no providers configured")
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
