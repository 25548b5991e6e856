// Package config provides configuration loading for escalated.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
	"github.com/fyrsmithlabs/escalated/internal/secrets"
	"github.com/fyrsmithlabs/escalated/internal/telemetry"
)

// Config is the full escalated configuration.
type Config struct {
	Registry     RegistryConfig     `koanf:"registry"`
	Proposals    ProposalsConfig    `koanf:"proposals"`
	Thresholds   ThresholdsConfig   `koanf:"thresholds"`
	Cooldown     CooldownConfig     `koanf:"cooldown"`
	Similarity   SimilarityConfig   `koanf:"similarity"`
	AutoProposal AutoProposalConfig `koanf:"auto_proposal"`

	// SeverityWeights must cover every severity; validation rejects unknown
	// severity names so a typo fails fast instead of silently weighting zero.
	SeverityWeights map[string]int `koanf:"severity_weights"`

	Secrets   secrets.Config   `koanf:"secrets"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// RegistryConfig locates the registry store.
type RegistryConfig struct {
	// Path is the registry JSON file (default: ~/.config/escalated/registry.json).
	Path string `koanf:"path"`
}

// ProposalsConfig locates generated proposal artifacts.
type ProposalsConfig struct {
	// Dir is the proposals base directory (default: ~/.config/escalated/proposals).
	Dir string `koanf:"dir"`
}

// ThresholdsConfig holds the pattern-detection thresholds.
type ThresholdsConfig struct {
	// Pattern is the same-source occurrence threshold (default: 3).
	Pattern int `koanf:"pattern"`

	// CrossProject is the distinct-source threshold (default: 2).
	CrossProject int `koanf:"cross_project"`
}

// CooldownConfig rate-limits repeated identical reports.
type CooldownConfig struct {
	// Minutes before an identical low/medium report from the same source
	// counts again (default: 30).
	Minutes int `koanf:"minutes"`
}

// SimilarityConfig tunes fuzzy clustering.
type SimilarityConfig struct {
	// Threshold is the Jaccard cutoff for grouping (default: 0.5).
	Threshold float64 `koanf:"threshold"`
}

// AutoProposalConfig gates proposal generation.
type AutoProposalConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `koanf:"level"`

	// Format is json or console (default: json).
	Format string `koanf:"format"`
}

// applyDefaults fills zero values for anything the file and environment left
// unset.
func applyDefaults(cfg *Config) error {
	if cfg.Registry.Path == "" || cfg.Proposals.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		if cfg.Registry.Path == "" {
			cfg.Registry.Path = filepath.Join(home, ".config", "escalated", "registry.json")
		}
		if cfg.Proposals.Dir == "" {
			cfg.Proposals.Dir = filepath.Join(home, ".config", "escalated", "proposals")
		}
	}
	if cfg.Thresholds.Pattern == 0 {
		cfg.Thresholds.Pattern = 3
	}
	if cfg.Thresholds.CrossProject == 0 {
		cfg.Thresholds.CrossProject = 2
	}
	if cfg.Cooldown.Minutes == 0 {
		cfg.Cooldown.Minutes = 30
	}
	if cfg.Similarity.Threshold == 0 {
		cfg.Similarity.Threshold = 0.5
	}
	if cfg.SeverityWeights == nil {
		cfg.SeverityWeights = map[string]int{
			string(escalation.SeverityCritical): 10,
			string(escalation.SeverityHigh):     5,
			string(escalation.SeverityMedium):   2,
			string(escalation.SeverityLow):      1,
		}
	}
	if cfg.Secrets.Redaction == "" {
		cfg.Secrets.Redaction = secrets.DefaultRedaction
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return nil
}

// Validate checks the configuration for values that would misbehave at
// runtime.
func (c *Config) Validate() error {
	if c.Thresholds.Pattern <= 0 {
		return fmt.Errorf("thresholds.pattern must be positive, got %d", c.Thresholds.Pattern)
	}
	if c.Thresholds.CrossProject <= 0 {
		return fmt.Errorf("thresholds.cross_project must be positive, got %d", c.Thresholds.CrossProject)
	}
	if c.Cooldown.Minutes <= 0 {
		return fmt.Errorf("cooldown.minutes must be positive, got %d", c.Cooldown.Minutes)
	}
	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be in (0, 1], got %v", c.Similarity.Threshold)
	}
	for name := range c.SeverityWeights {
		if !escalation.Severity(name).Valid() {
			return fmt.Errorf("severity_weights: unknown severity %q", name)
		}
	}
	for _, sev := range escalation.SeveritiesDescending {
		if _, ok := c.SeverityWeights[string(sev)]; !ok {
			return fmt.Errorf("severity_weights: missing severity %q", sev)
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ServiceConfig maps the loaded configuration into the escalation service
// configuration.
func (c *Config) ServiceConfig() *escalation.Config {
	weights := make(map[escalation.Severity]int, len(c.SeverityWeights))
	for name, w := range c.SeverityWeights {
		weights[escalation.Severity(name)] = w
	}
	return &escalation.Config{
		Defaults: escalation.RegistryConfig{
			PatternThreshold:      c.Thresholds.Pattern,
			CrossProjectThreshold: c.Thresholds.CrossProject,
			CooldownMinutes:       c.Cooldown.Minutes,
			AutoProposalEnabled:   c.AutoProposal.Enabled,
			SeverityWeights:       weights,
		},
		SimilarityThreshold: c.Similarity.Threshold,
	}
}
