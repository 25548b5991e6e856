package secrets

// defaultRules covers the credential shapes most likely to appear in pasted
// agent output. The set is deliberately small; false positives turn useful
// symptom text into noise.
func defaultRules() []Rule {
	return []Rule{
		{
			ID:      "aws-access-key-id",
			Pattern: `\b(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|ASIA)[A-Z0-9]{16}\b`,
		},
		{
			ID:      "private-key-block",
			Pattern: `-----BEGIN (?:RSA |EC |OPENSSH |DSA |PGP )?PRIVATE KEY(?: BLOCK)?-----`,
		},
		{
			ID:      "github-token",
			Pattern: `\bgh[pousr]_[A-Za-z0-9]{36,}\b`,
		},
		{
			ID:      "slack-token",
			Pattern: `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`,
		},
		{
			ID:      "bearer-token",
			Pattern: `(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{20,}=*`,
		},
		{
			ID:      "generic-api-key",
			Pattern: `(?i)(?:api[_-]?key|apikey|secret[_-]?key)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`,
		},
		{
			ID:      "password-assignment",
			Pattern: `(?i)(?:password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
		},
		{
			ID:      "url-credentials",
			Pattern: `[a-z][a-z0-9+.-]*://[^/\s:@]+:[^/\s:@]+@`,
		},
	}
}
