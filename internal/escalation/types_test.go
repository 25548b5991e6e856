package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Zero(t, Severity("urgent").Rank(), "unknown severities rank below low")
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, MaxSeverity(nil))
	assert.Equal(t, SeverityCritical,
		MaxSeverity([]Severity{SeverityLow, SeverityCritical, SeverityMedium}))
	assert.Equal(t, SeverityMedium,
		MaxSeverity([]Severity{SeverityMedium, SeverityLow}))
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("bogus").Valid())
	assert.False(t, Category("").Valid())
}

func TestRegistryConfig_WeightFallback(t *testing.T) {
	cfg := RegistryConfig{SeverityWeights: map[Severity]int{SeverityLow: 7}}

	assert.Equal(t, 7, cfg.Weight(SeverityLow))
	assert.Equal(t, 10, cfg.Weight(SeverityCritical), "missing weights fall back to defaults")
}

func TestRegistry_Normalize(t *testing.T) {
	reg := &Registry{}
	reg.Normalize()

	assert.NotNil(t, reg.Escalations)
	assert.NotNil(t, reg.SymptomIndex)
	assert.NotNil(t, reg.ProjectIndex)
	assert.Equal(t, 3, reg.Config.PatternThreshold)
	assert.Equal(t, 2, reg.Config.CrossProjectThreshold)
	assert.Equal(t, 30, reg.Config.CooldownMinutes)
	assert.NotNil(t, reg.Config.SeverityWeights)
}

func TestRegistry_EntriesForHash_SkipsDanglingIDs(t *testing.T) {
	reg := NewRegistry(DefaultRegistryConfig())
	entry := &Entry{ID: "live", SymptomHash: "abc"}
	reg.Escalations["live"] = entry
	reg.SymptomIndex["abc"] = []string{"live", "dangling"}

	entries := reg.EntriesForHash("abc")
	assert.Equal(t, []*Entry{entry}, entries)
	assert.Empty(t, reg.EntriesForHash("missing"))
}

func TestEntry_HasProject(t *testing.T) {
	e := &Entry{RelatedProjects: []string{"/proj/a", "/proj/b"}}

	assert.True(t, e.HasProject("/proj/a"))
	assert.False(t, e.HasProject("/proj/c"))
	assert.False(t, (&Entry{}).HasProject("/proj/a"))
}
