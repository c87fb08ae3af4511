// Package config loads and validates the YAML configuration consumed by
// the weather and river exporters. Configuration is read once at
// startup; a validation failure is fatal.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kpouget/wunderground2prom/errors"
	"github.com/kpouget/wunderground2prom/station"
)

// Defaults shared by both services.
const (
	DefaultBind            = "127.0.0.1"
	DefaultWeatherPort     = 12100
	DefaultRiverPort       = 12101
	DefaultWeatherInterval = 60 * time.Second
	DefaultRiverInterval   = 300 * time.Second
	DefaultUpstreamTimeout = 30 * time.Second

	DefaultWeatherEndpoint = "https://api.weather.com/v2/pws"
	DefaultRiverEndpoint   = "https://www.vigicrues.gouv.fr/services/observations.json/index.php"
)

// Duration wraps time.Duration so YAML values can be written either as
// Go duration strings ("60s", "5m") or as bare integer seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		d.Duration = time.Duration(seconds) * time.Second
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return errors.WrapInvalid(err, "Duration", "UnmarshalYAML", "scalar decoding")
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.WrapInvalid(err, "Duration", "UnmarshalYAML", "duration parsing")
	}
	d.Duration = parsed
	return nil
}

// ListenConfig defines the metrics HTTP listener.
type ListenConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Address returns the bind address in host:port form.
func (l ListenConfig) Address() string {
	return fmt.Sprintf("%s:%d", l.Bind, l.Port)
}

// UpstreamConfig defines the upstream observation API.
type UpstreamConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	Timeout  Duration `yaml:"timeout"`
}

// WeatherConfig is the configuration for the weather exporter.
type WeatherConfig struct {
	Listen   ListenConfig      `yaml:"listen"`
	Interval Duration          `yaml:"interval"`
	Debug    bool              `yaml:"debug"`
	Upstream UpstreamConfig    `yaml:"upstream"`
	Stations []station.Weather `yaml:"stations"`
}

// RiverConfig is the configuration for the river exporter.
type RiverConfig struct {
	Listen   ListenConfig    `yaml:"listen"`
	Interval Duration        `yaml:"interval"`
	Debug    bool            `yaml:"debug"`
	Upstream UpstreamConfig  `yaml:"upstream"`
	Stations []station.River `yaml:"stations"`
}

// DefaultWeather returns the weather exporter defaults.
func DefaultWeather() WeatherConfig {
	return WeatherConfig{
		Listen:   ListenConfig{Bind: DefaultBind, Port: DefaultWeatherPort},
		Interval: Duration{DefaultWeatherInterval},
		Upstream: UpstreamConfig{
			Endpoint: DefaultWeatherEndpoint,
			Timeout:  Duration{DefaultUpstreamTimeout},
		},
	}
}

// DefaultRiver returns the river exporter defaults.
func DefaultRiver() RiverConfig {
	return RiverConfig{
		Listen:   ListenConfig{Bind: DefaultBind, Port: DefaultRiverPort},
		Interval: Duration{DefaultRiverInterval},
		Upstream: UpstreamConfig{
			Endpoint: DefaultRiverEndpoint,
			Timeout:  Duration{DefaultUpstreamTimeout},
		},
	}
}

// LoadWeather reads, decodes and validates a weather exporter
// configuration file. Missing fields fall back to defaults.
func LoadWeather(path string) (WeatherConfig, error) {
	cfg := DefaultWeather()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WrapFatal(err, "config", "LoadWeather", "config file read")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"config", "LoadWeather", "YAML decoding")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadRiver reads, decodes and validates a river exporter configuration
// file. Missing fields fall back to defaults.
func LoadRiver(path string) (RiverConfig, error) {
	cfg := DefaultRiver()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WrapFatal(err, "config", "LoadRiver", "config file read")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"config", "LoadRiver", "YAML decoding")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the weather configuration for startup-fatal problems.
func (c WeatherConfig) Validate() error {
	if err := validateCommon(c.Listen, c.Interval, c.Upstream); err != nil {
		return err
	}
	if c.Upstream.APIKey == "" {
		return errors.WrapFatal(
			fmt.Errorf("upstream api_key: %w", errors.ErrMissingConfig),
			"WeatherConfig", "Validate", "API key validation")
	}
	if _, err := station.NewWeatherRegistry(c.Stations); err != nil {
		return errors.WrapFatal(err, "WeatherConfig", "Validate", "station list validation")
	}
	return nil
}

// Validate checks the river configuration for startup-fatal problems.
func (c RiverConfig) Validate() error {
	if err := validateCommon(c.Listen, c.Interval, c.Upstream); err != nil {
		return err
	}
	if _, err := station.NewRiverRegistry(c.Stations); err != nil {
		return errors.WrapFatal(err, "RiverConfig", "Validate", "station list validation")
	}
	return nil
}

func validateCommon(listen ListenConfig, interval Duration, upstream UpstreamConfig) error {
	if listen.Port < 1 || listen.Port > 65535 {
		return errors.WrapFatal(
			fmt.Errorf("listen port %d: %w", listen.Port, errors.ErrInvalidConfig),
			"config", "Validate", "listen port validation")
	}
	if interval.Duration <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("poll interval %s: %w", interval.Duration, errors.ErrInvalidConfig),
			"config", "Validate", "interval validation")
	}
	if upstream.Endpoint == "" {
		return errors.WrapFatal(
			fmt.Errorf("upstream endpoint: %w", errors.ErrMissingConfig),
			"config", "Validate", "endpoint validation")
	}
	if upstream.Timeout.Duration <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("upstream timeout %s: %w", upstream.Timeout.Duration, errors.ErrInvalidConfig),
			"config", "Validate", "timeout validation")
	}
	return nil
}
