package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymptom(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and sorts tokens",
			in:   "Connection Database Timeout",
			want: "connection database timeout",
		},
		{
			name: "word order is irrelevant",
			in:   "timeout database connection",
			want: "connection database timeout",
		},
		{
			name: "punctuation is stripped",
			in:   "database, connection: timeout!",
			want: "connection database timeout",
		},
		{
			name: "short filler tokens are dropped",
			in:   "a timeout in the db is bad",
			want: "bad the timeout",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "only filler tokens",
			in:   "a is to of",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSymptom(tt.in))
		})
	}
}

func TestSymptomHash(t *testing.T) {
	base := SymptomHash("Database connection timeout")

	assert.Len(t, base, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", base)

	// Case, punctuation and word order all hash identically.
	assert.Equal(t, base, SymptomHash("DATABASE CONNECTION TIMEOUT"))
	assert.Equal(t, base, SymptomHash("timeout... connection; database"))
	assert.Equal(t, base, SymptomHash("connection timeout database"))

	assert.NotEqual(t, base, SymptomHash("database connection refused"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "hook", "failed", "silently"},
		Tokenize("The hook failed, silently."))
	assert.Empty(t, Tokenize("a is it"))
	assert.Empty(t, Tokenize(""))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "basic text",
			in:   "Database connection timeout",
			want: "database-connection-timeout",
		},
		{
			name: "punctuation collapses",
			in:   "hook -- failed!!  badly",
			want: "hook-failed-badly",
		},
		{
			name: "truncated to bound without trailing hyphen",
			in:   "this symptom description is much longer than the slug bound allows",
			want: "this-symptom-description-is-much-longer",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), slugMaxLen)
			assert.Equal(t, got, Slug(tt.in), "slug is deterministic")
		})
	}
}
