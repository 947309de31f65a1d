package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates all configuration settings for the application.
type Config struct {
	// Environment indicates the running environment (e.g., "development", "production").
	Environment string `mapstructure:"environment"`
	// LogLevel sets the global logging verbosity.
	LogLevel string `mapstructure:"log_level"`
	// Server holds configuration for the HTTP server.
	Server ServerConfig `mapstructure:"server"`
	// Data holds the invoice source directories.
	Data DataConfig `mapstructure:"data"`
	// Models holds configuration for the model registry.
	Models ModelsConfig `mapstructure:"models"`
	// Training holds configuration for model training.
	Training TrainingConfig `mapstructure:"training"`
	// Audit holds configuration for train/predict audit logs.
	Audit AuditConfig `mapstructure:"audit"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
}

// DataConfig defines where invoice source files live.
type DataConfig struct {
	// TrainDir is the directory of training source files.
	TrainDir string `mapstructure:"train_dir"`
	// ProductionDir is the directory of production source files.
	ProductionDir string `mapstructure:"production_dir"`
}

// ModelsConfig defines the model registry settings.
type ModelsConfig struct {
	// Dir is the directory persisted artifacts are written to.
	Dir string `mapstructure:"dir"`
	// Algorithm is the algorithm identity used in artifact keys.
	Algorithm string `mapstructure:"algorithm"`
}

// TrainingConfig defines training behavior.
type TrainingConfig struct {
	// SplitRatio is the train share of the train/validation partition.
	SplitRatio float64 `mapstructure:"split_ratio"`
	// TopCountries is how many countries are retained by total revenue.
	TopCountries int `mapstructure:"top_countries"`
}

// AuditConfig defines where audit CSV logs are written.
type AuditConfig struct {
	// Dir is the audit log directory.
	Dir string `mapstructure:"dir"`
}

// Load reads the configuration from the config file and environment variables.
func Load() (*Config, error) {
	// A .env file is optional; environment wins over file values either way.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults initializes the default configuration values in Viper.
func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("data.train_dir", "data/cs-train")
	viper.SetDefault("data.production_dir", "data/cs-production")

	viper.SetDefault("models.dir", "results/models")
	viper.SetDefault("models.algorithm", "PowerRidge")

	viper.SetDefault("training.split_ratio", 0.75)
	viper.SetDefault("training.top_countries", 10)

	viper.SetDefault("audit.dir", "logs")
}

// validateConfig validates operational settings.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", config.Server.Port)
	}
	if config.Training.SplitRatio <= 0 || config.Training.SplitRatio >= 1 {
		return fmt.Errorf("training.split_ratio must be in (0, 1), got %v", config.Training.SplitRatio)
	}
	if config.Training.TopCountries <= 0 {
		return fmt.Errorf("training.top_countries must be positive, got %d", config.Training.TopCountries)
	}
	if config.Models.Dir == "" {
		return fmt.Errorf("models.dir cannot be empty")
	}
	return nil
}
