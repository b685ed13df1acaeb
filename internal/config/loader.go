// Package config provides configuration management for the health-monitoring agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config values.
const EnvPrefix = "DBHEALTH"

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: DBHEALTH_<SECTION>_<KEY> (e.g., DBHEALTH_DATABASE_PASSWORD)
//
// An empty configPath means defaults plus environment only. A .env file next to
// the working directory or the config file is loaded first; it never overrides
// variables already set in the process environment.
func Load(configPath string) (*Config, error) {
	return LoadWith(configPath, nil)
}

// LoadWith is Load with an override applied after file and environment values
// and before validation. The CLI uses it to apply explicitly set flags.
func LoadWith(configPath string, override func(*Config)) (*Config, error) {
	loadDotEnv(configPath)

	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider-native key names are honoured as a fallback
	_ = v.BindEnv("advisory.api_key", EnvPrefix+"_ADVISORY_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY")

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if override != nil {
		override(&cfg)
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads the first .env file found among the candidate locations.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.timeout", 10*time.Second)

	// System sampling defaults
	v.SetDefault("system.disk_path", "/")
	v.SetDefault("system.cpu_sample_interval", 1*time.Second)
	v.SetDefault("system.process_name", "mysqld")

	// Monitoring defaults
	v.SetDefault("monitoring.level", 2)
	v.SetDefault("monitoring.enable_tables", false)
	v.SetDefault("monitoring.concurrency", 4)
	v.SetDefault("monitoring.run_timeout", 2*time.Minute)
	v.SetDefault("monitoring.include_raw", false)
	v.SetDefault("monitoring.schema_file", "")

	// Thresholds defaults
	v.SetDefault("thresholds.connection_usage.warning", 70.0)
	v.SetDefault("thresholds.connection_usage.critical", 90.0)
	v.SetDefault("thresholds.cpu_usage.warning", 70.0)
	v.SetDefault("thresholds.cpu_usage.critical", 90.0)
	v.SetDefault("thresholds.memory_usage.warning", 70.0)
	v.SetDefault("thresholds.memory_usage.critical", 90.0)
	v.SetDefault("thresholds.swap_usage.warning", 50.0)
	v.SetDefault("thresholds.swap_usage.critical", 80.0)
	v.SetDefault("thresholds.disk_usage.warning", 70.0)
	v.SetDefault("thresholds.disk_usage.critical", 90.0)

	// Advisory defaults
	v.SetDefault("advisory.enabled", false)
	v.SetDefault("advisory.provider", "anthropic")
	v.SetDefault("advisory.api_key", "")
	v.SetDefault("advisory.endpoint", "https://api.anthropic.com")
	v.SetDefault("advisory.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("advisory.max_tokens", 4096)
	v.SetDefault("advisory.timeout", 60*time.Second)
	v.SetDefault("advisory.auto_approve", false)

	// Report defaults
	v.SetDefault("report.output_dir", "logs")
	v.SetDefault("report.formats", []string{"json"})
	v.SetDefault("report.filename_template", "status_{{.Timestamp}}")
	v.SetDefault("report.timezone", "Local")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// HTTP retry defaults: the core performs no automatic retry
	v.SetDefault("http.retry.max_retries", 0)
	v.SetDefault("http.retry.base_delay", 1*time.Second)
}
