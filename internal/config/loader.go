package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "BRACKET_FORECAST"
	defaultConfigPath = "config/config.yaml"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(envPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()

	// Read the expanded configuration
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bracket-forecast")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("feature_store.driver", "memory")
	v.SetDefault("feature_store.path", "data/fixture.json")
	v.SetDefault("feature_store.cache_ttl_seconds", 300)

	v.SetDefault("rating.k_base", 30.0)
	v.SetDefault("rating.home_adv", 40.0)
	v.SetDefault("rating.baseline", 1500.0)
	v.SetDefault("rating.scale", 400.0)
	v.SetDefault("rating.preseason_regress", 1.0)

	v.SetDefault("classifier.features", []string{"elo_diff", "adj_o_diff", "adj_d_diff", "tempo_diff"})
	v.SetDefault("classifier.c", 1.0)
	v.SetDefault("classifier.max_iterations", 200)
	v.SetDefault("classifier.standardize", true)

	v.SetDefault("prior.strength", 10.0)

	v.SetDefault("ensemble.method", "weighted")
	v.SetDefault("ensemble.fallback_to_prior", true)

	v.SetDefault("calibration.method", "isotonic")

	v.SetDefault("simulation.trials", 10000)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.workers", 4)

	v.SetDefault("backtest.protocol", "expanding")
	v.SetDefault("backtest.scoring_system", "espn")
	v.SetDefault("backtest.export_dir", "output/backtest")

	v.SetDefault("scoring.systems", map[string][]int{
		"espn":   {10, 20, 40, 80, 160, 320},
		"simple": {1, 1, 1, 1, 1, 1},
	})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.retrain_cron", "0 6 * * *")
	v.SetDefault("schedule.artifact_dir", "artifacts")
	v.SetDefault("schedule.activate", true)
}

// ReloadFromEnv reloads the configuration from BRACKET_FORECAST_CONFIG_PATH when set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
