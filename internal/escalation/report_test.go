package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newTestService(t)

	// One pattern over threshold, one pending, one high-severity pending.
	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}
	_, err := svc.Ingest(ctx, report("linter config drift", "/proj/a", SeverityLow))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, report("secrets written to build log", "/proj/a", SeverityCritical))
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.PatternDetected)
	assert.Equal(t, 1, summary.HighOrCritical)

	// Ranked patterns include below-threshold entries, critical first.
	require.Len(t, summary.TopPatterns, 3)
	assert.Equal(t, SymptomHash("secrets written to build log"), summary.TopPatterns[0].SymptomHash)
}

func TestService_Summary_TopNTruncation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	symptoms := []string{
		"first distinct problem report",
		"second distinct problem report",
		"third distinct problem report",
	}
	for _, symptom := range symptoms {
		_, err := svc.Ingest(ctx, report(symptom, "/proj/a", SeverityLow))
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, summary.TopPatterns, 2)

	// Non-positive topN falls back to the default.
	summary, err = svc.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, summary.TopPatterns, 3)
}

func TestService_Summary_EmptyRegistry(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	summary, err := svc.Summary(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Pending)
	assert.Empty(t, summary.TopPatterns)
}

func TestService_GroupBySeverity(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newTestService(t)

	reports := []struct {
		symptom string
		sev     Severity
	}{
		{"stale cache served after deploy", SeverityLow},
		{"linter config drift", SeverityLow},
		{"secrets written to build log", SeverityCritical},
		{"token expiry not handled", SeverityMedium},
	}
	for _, r := range reports {
		_, err := svc.Ingest(ctx, report(r.symptom, "/proj/a", r.sev))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	groups, err := svc.GroupBySeverity(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3, "severities with no members are omitted")

	// Most urgent first; high is absent.
	assert.Equal(t, SeverityCritical, groups[0].Severity)
	assert.Equal(t, SeverityMedium, groups[1].Severity)
	assert.Equal(t, SeverityLow, groups[2].Severity)

	require.Len(t, groups[2].Entries, 2)
	assert.Equal(t, "stale cache served after deploy", groups[2].Entries[0].Symptom,
		"entries within a group are in creation order")
}
