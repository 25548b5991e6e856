// Package secrets redacts credential material from escalation text before it
// is persisted.
//
// Problem reports are free text pasted out of agent sessions and frequently
// carry tokens, connection strings or key material. The registry file and the
// generated proposal documents outlive the session, so everything that looks
// like a secret is replaced before either is written.
package secrets

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// DefaultRedaction replaces detected secrets.
const DefaultRedaction = "[REDACTED]"

// Rule is one secret-detection pattern.
type Rule struct {
	// ID names the rule in findings.
	ID string `koanf:"id"`

	// Pattern is the regular expression that matches the secret.
	Pattern string `koanf:"pattern"`
}

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true).
	Enabled bool `koanf:"enabled"`

	// Redaction is the replacement string (default: "[REDACTED]").
	Redaction string `koanf:"redaction"`

	// ExtraRules are appended to the built-in rule set.
	ExtraRules []Rule `koanf:"extra_rules"`
}

// DefaultConfig returns the default scrubber configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Redaction: DefaultRedaction,
	}
}

// Finding records one redaction.
type Finding struct {
	RuleID string `json:"ruleId"`
}

// Scrubber redacts secrets from text using a fixed rule set.
type Scrubber struct {
	enabled   bool
	redaction string
	rules     []compiledRule
}

type compiledRule struct {
	id string
	re *regexp.Regexp
}

// New compiles the rule set and returns a scrubber.
func New(cfg *Config) (*Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	redaction := cfg.Redaction
	if redaction == "" {
		redaction = DefaultRedaction
	}

	rules := append(defaultRules(), cfg.ExtraRules...)
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return nil, errors.New("secret rule missing id")
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("secret rule %s: %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{id: r.ID, re: re})
	}

	return &Scrubber{
		enabled:   cfg.Enabled,
		redaction: redaction,
		rules:     compiled,
	}, nil
}

// Scrub replaces every secret match in content with the redaction string and
// returns the findings that drove the replacements.
func (s *Scrubber) Scrub(content string) (string, []Finding) {
	if !s.enabled || content == "" {
		return content, nil
	}

	type span struct {
		start, end int
		ruleID     string
	}

	var spans []span
	for _, rule := range s.rules {
		for _, m := range rule.re.FindAllStringIndex(content, -1) {
			spans = append(spans, span{start: m[0], end: m[1], ruleID: rule.id})
		}
	}
	if len(spans) == 0 {
		return content, nil
	}

	// Overlapping matches from different rules collapse into one redaction.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start == spans[j].start {
			return spans[i].end > spans[j].end
		}
		return spans[i].start < spans[j].start
	})

	var findings []Finding
	var out []byte
	pos := 0
	for _, sp := range spans {
		if sp.start < pos {
			continue
		}
		out = append(out, content[pos:sp.start]...)
		out = append(out, s.redaction...)
		pos = sp.end
		findings = append(findings, Finding{RuleID: sp.ruleID})
	}
	out = append(out, content[pos:]...)

	return string(out), findings
}
