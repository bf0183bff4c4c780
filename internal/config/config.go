// Package config loads runtime configuration for harvest sync runs.
//
// Configuration merges three layers, highest priority first:
//  1. environment variables (HARVESTSYNC_* plus the legacy deployment
//     names: API_BASE_URL, SUPABASE_URL, EMAIL_SENDER, ...)
//  2. an optional YAML config file
//  3. built-in defaults
//
// The result is an explicit Config struct handed to constructors; nothing
// in this package is a process-wide singleton.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Table    TableConfig    `mapstructure:"table"`
	Email    EmailConfig    `mapstructure:"email"`
	Log      LogConfig      `mapstructure:"log"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
}

// DatabaseConfig locates the destination database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig configures the harvest REST API source.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Key     string `mapstructure:"key"`
	Env     string `mapstructure:"env"`
	Company string `mapstructure:"company"`
}

// TableConfig configures the hosted table service source.
type TableConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Key     string `mapstructure:"key"`
	Name    string `mapstructure:"name"`
}

// EmailConfig configures the SMTP notification sink. Leaving sender,
// password, or recipient empty disables email delivery.
type EmailConfig struct {
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Sender    string `mapstructure:"sender"`
	Password  string `mapstructure:"password"`
	Recipient string `mapstructure:"recipient"`
}

// LogConfig configures the durable run log.
type LogConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MappingConfig points at an optional YAML document overriding how source
// column names map onto destination columns.
type MappingConfig struct {
	File string `mapstructure:"file"`
}

// LoadEnvFile loads a dotenv file into the process environment. A missing
// file is not an error; deployments without one configure the environment
// directly.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return nil
	}
	return nil
}

// Load resolves configuration from defaults, an optional config file, and
// the environment. filePath may be empty; a named file that cannot be read
// is an error, an unnamed absent one is not.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "harvestsync.db")
	v.SetDefault("api.base_url", "https://run-api-bi-neo-23393472851.us-central1.run.app")
	v.SetDefault("api.env", "prod")
	v.SetDefault("api.company", "magopco")
	v.SetDefault("table.name", "tracefruit_harvest")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("log.path", "harvest_data_sync.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 90)

	// HARVESTSYNC_* names are checked first; the legacy deployment names
	// keep existing .env files working.
	bindings := map[string][]string{
		"database.path":   {"HARVESTSYNC_DB_PATH", "DB_PATH"},
		"api.base_url":    {"HARVESTSYNC_API_BASE_URL", "API_BASE_URL"},
		"api.key":         {"HARVESTSYNC_API_KEY", "API_KEY"},
		"api.env":         {"HARVESTSYNC_API_ENV", "API_ENV"},
		"api.company":     {"HARVESTSYNC_API_COMPANY", "API_COMPANY"},
		"table.base_url":  {"HARVESTSYNC_TABLE_URL", "SUPABASE_URL"},
		"table.key":       {"HARVESTSYNC_TABLE_KEY", "SUPABASE_KEY"},
		"table.name":      {"HARVESTSYNC_TABLE_NAME", "SUPABASE_TABLE"},
		"email.sender":    {"HARVESTSYNC_EMAIL_SENDER", "EMAIL_SENDER"},
		"email.password":  {"HARVESTSYNC_EMAIL_PASSWORD", "EMAIL_APP_PASSWORD"},
		"email.recipient": {"HARVESTSYNC_EMAIL_RECIPIENT", "EMAIL_RECIPIENT"},
		"log.path":        {"HARVESTSYNC_LOG_PATH", "LOG_PATH"},
		"mapping.file":    {"HARVESTSYNC_MAPPING_FILE", "MAPPING_FILE"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
	} else {
		v.SetConfigName("harvestsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks fields every run needs regardless of record kind.
// Source-specific requirements are checked by the command that uses them.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}
	return nil
}
