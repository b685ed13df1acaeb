// Package config provides configuration management for the health-monitoring agent.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one invalid configuration value.
type ValidationError struct {
	Field   string // dotted config key, e.g. "database.port"
	Tag     string // failed rule, e.g. "required" or "threshold_order"
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		fmt.Fprintf(&sb, "  - %s: %s\n", err.Field, err.Message)
	}
	return sb.String()
}

func (e *ValidationErrors) add(field, tag string, value any, format string, args ...any) {
	*e = append(*e, &ValidationError{
		Field:   field,
		Tag:     tag,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

var validate = validator.New()

// checks run after struct-tag validation, in this order.
var checks = []func(*Config, *ValidationErrors){
	checkThresholds,
	checkMonitoring,
	checkReport,
	checkAdvisory,
}

// Validate validates the configuration and returns user-friendly error messages.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("config validation failed: %w", err)
		}
		for _, fe := range fieldErrors {
			errs = append(errs, &ValidationError{
				Field:   formatFieldName(fe.Namespace()),
				Tag:     fe.Tag(),
				Value:   fe.Value(),
				Message: translateError(fe),
			})
		}
	}

	for _, check := range checks {
		check(cfg, &errs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// checkThresholds requires every warning threshold to sit below its critical one.
func checkThresholds(cfg *Config, errs *ValidationErrors) {
	pairs := []struct {
		field string
		pair  ThresholdPair
	}{
		{"thresholds.connection_usage", cfg.Thresholds.ConnectionUsage},
		{"thresholds.cpu_usage", cfg.Thresholds.CPUUsage},
		{"thresholds.memory_usage", cfg.Thresholds.MemoryUsage},
		{"thresholds.swap_usage", cfg.Thresholds.SwapUsage},
		{"thresholds.disk_usage", cfg.Thresholds.DiskUsage},
	}

	for _, p := range pairs {
		if p.pair.Warning >= p.pair.Critical {
			errs.add(p.field, "threshold_order",
				fmt.Sprintf("warning=%v, critical=%v", p.pair.Warning, p.pair.Critical),
				"warning threshold (%.2f) must be less than critical threshold (%.2f)", p.pair.Warning, p.pair.Critical)
		}
	}
}

// checkMonitoring keeps the CPU sample inside the run deadline.
func checkMonitoring(cfg *Config, errs *ValidationErrors) {
	timeout := cfg.Monitoring.RunTimeout
	if timeout < 0 {
		errs.add("monitoring.run_timeout", "gte", timeout, "run timeout must not be negative")
		return
	}
	if timeout > 0 && cfg.System.CPUSampleInterval >= timeout {
		errs.add("system.cpu_sample_interval", "lt_run_timeout", cfg.System.CPUSampleInterval,
			"cpu sample interval (%s) must be shorter than the run timeout (%s)", cfg.System.CPUSampleInterval, timeout)
	}
}

// checkReport validates the timezone and the artifact filename template.
func checkReport(cfg *Config, errs *ValidationErrors) {
	if tz := cfg.Report.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs.add("report.timezone", "timezone", tz, "invalid timezone: %s", tz)
		}
	}

	if tmpl := cfg.Report.FilenameTemplate; tmpl != "" {
		if strings.ContainsAny(tmpl, `/\`) {
			errs.add("report.filename_template", "filename", tmpl, "filename template must not contain path separators: %s", tmpl)
		}
		if !strings.Contains(tmpl, "{{.Timestamp}}") && !strings.Contains(tmpl, "{{.Date}}") {
			errs.add("report.filename_template", "filename", tmpl, "filename template needs {{.Timestamp}} or {{.Date}}: %s", tmpl)
		}
	}
}

// checkAdvisory validates the advisory section when it is enabled.
func checkAdvisory(cfg *Config, errs *ValidationErrors) {
	if !cfg.Advisory.Enabled {
		return
	}
	if cfg.Advisory.APIKey == "" {
		errs.add("advisory.api_key", "required_when_enabled", "",
			"api_key is required when the advisory service is enabled (or set ANTHROPIC_API_KEY / GEMINI_API_KEY)")
	}
	if cfg.Advisory.Model == "" {
		errs.add("advisory.model", "required_when_enabled", "",
			"model is required when the advisory service is enabled")
	}
}

// formatFieldName converts the validator field namespace to a user-friendly format.
// Example: "Config.Database.Port" -> "database.port"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:] // Remove "Config"
	}

	for i, part := range parts {
		parts[i] = toSnakeCase(part)
	}

	return strings.Join(parts, ".")
}

// toSnakeCase converts a Go field name such as "DiskPath" or "CPUUsage" to "disk_path" / "cpu_usage".
func toSnakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				sb.WriteByte('_')
			}
		}
		if isUpper {
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return fmt.Sprintf("invalid URL format: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	case "dive":
		return fmt.Sprintf("invalid value in list: %v", fe.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
