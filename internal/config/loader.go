package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces escalated environment variables.
const envPrefix = "ESCALATED_"

// defaultYAML carries the scalar defaults. Booleans must default here rather
// than in applyDefaults, where "false" and "unset" are indistinguishable.
const defaultYAML = `
thresholds:
  pattern: 3
  cross_project: 2
cooldown:
  minutes: 30
similarity:
  threshold: 0.5
auto_proposal:
  enabled: true
severity_weights:
  critical: 10
  high: 5
  medium: 2
  low: 1
secrets:
  enabled: true
  redaction: "[REDACTED]"
telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
logging:
  level: info
  format: json
`

// Load reads configuration with precedence (highest first): environment
// variables, the YAML file at configPath (optional; a missing file is fine),
// then built-in defaults.
//
// Environment variables use the ESCALATED_ prefix with underscore separators,
// split on the first underscore after the prefix:
//
//	ESCALATED_REGISTRY_PATH        -> registry.path
//	ESCALATED_THRESHOLDS_PATTERN   -> thresholds.pattern
//	ESCALATED_COOLDOWN_MINUTES     -> cooldown.minutes
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// ESCALATED_SECTION_FIELD_NAME -> section.field_name: split on the
		// first underscore after the prefix, keep the rest underscored.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// Two-word sections need explicit handling before the generic split.
		for _, section := range []string{"auto_proposal", "severity_weights"} {
			if strings.HasPrefix(lower, section+"_") {
				return section + "." + strings.TrimPrefix(lower, section+"_")
			}
		}
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
