package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Alpaca   AlpacaConfig   `mapstructure:"alpaca"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// AnalysisConfig holds the payoff model's ambient parameters. They are
// threaded through explicitly rather than read as globals.
type AnalysisConfig struct {
	ContractMultiplier float64 `mapstructure:"contract_multiplier"`
	CurveSamples       int     `mapstructure:"curve_samples"`
	CurveSpan          float64 `mapstructure:"curve_span"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ActivityDir string `mapstructure:"activity_dir"`
}

// Load reads configuration from a YAML file (optional) with environment
// variable overrides for credentials and the server port.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; defaults plus env cover everything.
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadFromEnv(config)

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("analysis.contract_multiplier", 100)
	v.SetDefault("analysis.curve_samples", 41)
	v.SetDefault("analysis.curve_span", 0.5)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "data/snapshots.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.activity_dir", "logs")
}

// loadFromEnv lets environment variables override file values, primarily so
// credentials never need to live in the config file.
func loadFromEnv(config *Config) {
	if apiKey := os.Getenv("ALPACA_API_KEY"); apiKey != "" {
		config.Alpaca.APIKey = apiKey
	}
	if secretKey := os.Getenv("ALPACA_SECRET_KEY"); secretKey != "" {
		config.Alpaca.SecretKey = secretKey
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		config.Database.Path = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
