// Package config provides configuration management for the health-monitoring agent.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	System     SystemConfig     `mapstructure:"system"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Advisory   AdvisoryConfig   `mapstructure:"advisory"`
	Report     ReportConfig     `mapstructure:"report"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

// DatabaseConfig contains the MySQL connection parameters.
type DatabaseConfig struct {
	Host     string        `mapstructure:"host" validate:"required"`
	Port     int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	User     string        `mapstructure:"user" validate:"required"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"` // dial and read timeout
}

// SystemConfig contains OS sampling settings.
type SystemConfig struct {
	DiskPath          string        `mapstructure:"disk_path" validate:"required"`
	CPUSampleInterval time.Duration `mapstructure:"cpu_sample_interval"`
	ProcessName       string        `mapstructure:"process_name"` // server process to report on, e.g. "mysqld"
}

// MonitoringConfig controls what one run collects.
type MonitoringConfig struct {
	Level        int           `mapstructure:"level" validate:"gte=1,lte=3"`
	EnableTables bool          `mapstructure:"enable_tables"` // collect table statistics below level 3
	Concurrency  int           `mapstructure:"concurrency" validate:"gte=1,lte=16"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	IncludeRaw   bool          `mapstructure:"include_raw"` // keep raw snapshots in the report for audit
	SchemaFile   string        `mapstructure:"schema_file"` // optional override of the embedded counter schemas
}

// ThresholdsConfig contains threshold configurations for server and system alerts.
type ThresholdsConfig struct {
	ConnectionUsage ThresholdPair `mapstructure:"connection_usage"`
	CPUUsage        ThresholdPair `mapstructure:"cpu_usage"`
	MemoryUsage     ThresholdPair `mapstructure:"memory_usage"`
	SwapUsage       ThresholdPair `mapstructure:"swap_usage"`
	DiskUsage       ThresholdPair `mapstructure:"disk_usage"`
}

// ThresholdPair defines warning and critical thresholds for a metric.
type ThresholdPair struct {
	Warning  float64 `mapstructure:"warning" validate:"gte=0,lte=100"`
	Critical float64 `mapstructure:"critical" validate:"gte=0,lte=100"`
}

// AdvisoryConfig configures the optional advisory service.
type AdvisoryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Provider    string        `mapstructure:"provider" validate:"oneof=anthropic gemini"`
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=1"`
	Timeout     time.Duration `mapstructure:"timeout"`
	AutoApprove bool          `mapstructure:"auto_approve"` // approve every command without prompting
}

// ReportConfig contains configurations for report generation.
type ReportConfig struct {
	OutputDir        string   `mapstructure:"output_dir"`
	Formats          []string `mapstructure:"formats" validate:"dive,oneof=json excel html"`
	FilenameTemplate string   `mapstructure:"filename_template"`
	HTMLTemplate     string   `mapstructure:"html_template"`
	Timezone         string   `mapstructure:"timezone"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// TablesEnabled reports whether the table statistics domain is collected.
func (m MonitoringConfig) TablesEnabled() bool {
	return m.Level >= 3 || m.EnableTables
}

// Location returns the configured report timezone, falling back to time.Local.
func (r ReportConfig) Location() *time.Location {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
