package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/tradegate/internal/data"
	"github.com/sawpanic/tradegate/internal/gates"
	httpapi "github.com/sawpanic/tradegate/internal/interfaces/http"
	"github.com/sawpanic/tradegate/internal/permission"
	"github.com/sawpanic/tradegate/internal/scheduler"
)

// Config is the full runtime configuration. Every section has working
// defaults; a config file overrides selectively.
type Config struct {
	Scheduler scheduler.Config        `yaml:"scheduler"`
	Gates     gates.Config            `yaml:"gates"`
	Engine    permission.EngineConfig `yaml:"engine"`
	Facade    data.FacadeConfig       `yaml:"facade"`
	Providers ProvidersConfig         `yaml:"providers"`
	Storage   StorageConfig           `yaml:"storage"`
	HTTP      httpapi.Config          `yaml:"http"`
	Notify    NotifyConfig            `yaml:"notify"`
	LogLevel  string                  `yaml:"log_level"`
}

// ProvidersConfig holds per-source connection settings.
type ProvidersConfig struct {
	DerivsExchange string                 `yaml:"derivs_exchange"`
	Derivs         data.RESTConfig        `yaml:"derivs"`
	Options        data.RESTConfig        `yaml:"options"`
	WhaleStream    data.WhaleStreamConfig `yaml:"whale_stream"`
}

// StorageConfig selects the persistence backend. An empty PostgresDSN
// runs fully in memory.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
}

// NotifyConfig tunes state-change alerting.
type NotifyConfig struct {
	PerAssetPerHour float64 `yaml:"per_asset_per_hour"`
	Burst           int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Scheduler: scheduler.DefaultConfig(),
		Gates:     *gates.DefaultConfig(),
		Engine:    permission.DefaultEngineConfig(),
		Facade:    data.DefaultFacadeConfig(),
		Providers: ProvidersConfig{
			DerivsExchange: "binance",
			Derivs:         data.DefaultRESTConfig("https://api.derivs.example.com"),
			Options:        data.DefaultRESTConfig("https://api.options.example.com"),
			WhaleStream:    data.DefaultWhaleStreamConfig("wss://stream.trades.example.com/ws"),
		},
		HTTP: httpapi.DefaultConfig(),
		Notify: NotifyConfig{
			PerAssetPerHour: 12,
			Burst:           3,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults. Path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section. Configuration errors are hard startup
// errors; nothing runs on a contradictory threshold set.
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Gates.Validate(); err != nil {
		return fmt.Errorf("gates: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Facade.Validate(); err != nil {
		return fmt.Errorf("facade: %w", err)
	}
	if c.Providers.Derivs.BaseURL == "" || c.Providers.Options.BaseURL == "" {
		return fmt.Errorf("providers need base URLs")
	}
	if c.Notify.PerAssetPerHour <= 0 {
		return fmt.Errorf("notify per_asset_per_hour must be positive, got %g", c.Notify.PerAssetPerHour)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
