package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string `yaml:"database_url"`

	// Server
	ServerPort string `yaml:"server_port"`
	LogLevel   string `yaml:"log_level"`

	// Optimizer tuning
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// OptimizerConfig tunes the decision core. Zero values fall back to
// the engine's built-in defaults.
type OptimizerConfig struct {
	Exploration       float64 `yaml:"exploration"`
	ZScore            float64 `yaml:"z_score"`
	MinArmSamples     int     `yaml:"min_arm_samples"`
	NoiseFloor        float64 `yaml:"noise_floor"`
	DecisionCacheSize int     `yaml:"decision_cache_size"`
	DefaultEtaKnob    float64 `yaml:"default_eta_knob"`
	DefaultMaxTrials  int     `yaml:"default_max_trials"`
	DefaultMaxPower   float64 `yaml:"default_max_power"`
}

// Load loads configuration from environment variables, with an
// optional YAML file (CONFIG_FILE) layered underneath for the
// optimizer tuning knobs.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/bso?sslmode=disable"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		// Environment still wins for the process-wide settings.
		cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
		cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
		cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	}

	if v := os.Getenv("BSO_DEFAULT_MAX_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse BSO_DEFAULT_MAX_TRIALS")
		}
		cfg.Optimizer.DefaultMaxTrials = n
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
