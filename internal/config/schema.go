// Package config provides configuration management for the health-monitoring agent.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dbhealth/internal/model"
)

//go:embed schemas.yaml
var defaultSchemas []byte

// LoadSchemas reads the counter schemas for every domain.
// If schemaPath is empty, the embedded default schemas are used.
func LoadSchemas(schemaPath string) ([]model.DomainSchema, error) {
	data := defaultSchemas
	source := "embedded schemas"

	if schemaPath != "" {
		if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("schema file not found: %s", schemaPath)
		}

		content, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		data = content
		source = schemaPath
	}

	return ParseSchemas(data, source)
}

// ParseSchemas parses and validates schema YAML content.
func ParseSchemas(data []byte, source string) ([]model.DomainSchema, error) {
	var cfg model.SchemasConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}

	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("no domains defined in %s", source)
	}

	seen := make(map[model.Domain]bool)
	for i, d := range cfg.Domains {
		if !d.Domain.IsValid() {
			return nil, fmt.Errorf("schema at index %d has unknown domain %q", i, d.Domain)
		}
		if seen[d.Domain] {
			return nil, fmt.Errorf("domain %q defined more than once", d.Domain)
		}
		seen[d.Domain] = true

		if err := validateFields(string(d.Domain), d.Fields); err != nil {
			return nil, err
		}
		for _, r := range d.Rows {
			if r.Set == "" {
				return nil, fmt.Errorf("domain %q has a row set without name", d.Domain)
			}
			if err := validateFields(string(d.Domain)+"."+r.Set, r.Fields); err != nil {
				return nil, err
			}
		}
	}

	return cfg.Domains, nil
}

func validateFields(scope string, fields []model.FieldSpec) error {
	for i, f := range fields {
		if f.Key == "" {
			return fmt.Errorf("%s: field at index %d has no key", scope, i)
		}
		if f.Name == "" {
			return fmt.Errorf("%s: field %q has no name", scope, f.Key)
		}
		if !f.Kind.IsValid() {
			return fmt.Errorf("%s: field %q has invalid kind %q", scope, f.Key, f.Kind)
		}
		if !f.Unit.IsValid() {
			return fmt.Errorf("%s: field %q has invalid unit %q", scope, f.Key, f.Unit)
		}
	}
	return nil
}
