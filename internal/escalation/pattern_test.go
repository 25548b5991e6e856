package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_DetectPatterns_ThresholdFilter(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newTestService(t)

	// One symptom reported three times, one reported twice, one once.
	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}
	for i := 0; i < 2; i++ {
		_, err := svc.Ingest(ctx, report("linter config drift", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}
	_, err := svc.Ingest(ctx, report("release notes missing", "/proj/a", SeverityLow))
	require.NoError(t, err)

	patterns, err := svc.DetectPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, SymptomHash("stale cache served after deploy"), p.SymptomHash)
	assert.Equal(t, 3, p.OccurrenceCount)
	assert.Equal(t, 1, p.CrossProjectCount)
	assert.Len(t, p.EntryIDs, 1)
}

func TestService_DetectPatterns_CrossProjectPath(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	_, err := svc.Ingest(ctx, report("release notes missing links", "/proj/a", SeverityLow))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, report("release notes missing links", "/proj/b", SeverityLow))
	require.NoError(t, err)

	patterns, err := svc.DetectPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	// Two distinct sources trigger even with a single occurrence each.
	assert.Equal(t, 1, patterns[0].OccurrenceCount)
	assert.Equal(t, 2, patterns[0].CrossProjectCount)
}

func TestService_DetectPatterns_MetaSuppressed(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newTestService(t)

	for i := 0; i < 4; i++ {
		result, err := svc.Ingest(ctx, &IngestRequest{
			Symptom:    "escalation tracker keeps flagging itself",
			Category:   CategoryMeta,
			Severity:   SeverityLow,
			SourcePath: "/proj/a",
		})
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.False(t, result.PatternDetected)
		clock.Advance(31 * time.Minute)
	}

	patterns, err := svc.DetectPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, patterns, "meta escalations always require human triage")
}

func TestService_DetectPatterns_PriorityOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newTestService(t)

	// A critical symptom reported twice outranks a low one reported five
	// times: severity dominates the score.
	for i := 0; i < 2; i++ {
		_, err := svc.Ingest(ctx, report("secrets written to build log", "/proj/a", SeverityCritical))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}
	// Low-severity pattern with more volume still ranks below it.
	for i := 0; i < 5; i++ {
		_, err := svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}

	patterns, err := svc.DetectPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	assert.Equal(t, SymptomHash("secrets written to build log"), patterns[0].SymptomHash)
	assert.Equal(t, SymptomHash("stale cache served after deploy"), patterns[1].SymptomHash)
	assert.Greater(t, patterns[0].Priority, patterns[1].Priority)

	// weight(critical)=10 so 10*10 + min(2,10) + 1*3 = 105.
	assert.Equal(t, 105, patterns[0].Priority)
	// weight(low)=1 so 1*10 + min(5,10) + 1*3 = 18.
	assert.Equal(t, 18, patterns[1].Priority)
}

func TestService_Priority_AgeBonus(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	s := svc.(*service)
	reg := NewRegistry(DefaultRegistryConfig())

	entry := &Entry{
		Severity:          SeverityLow,
		OccurrenceCount:   1,
		CrossProjectCount: 1,
		CreatedAt:         clock.Now(),
	}

	fresh := s.priority(entry, reg)

	clock.Advance(8 * 24 * time.Hour)
	aged := s.priority(entry, reg)

	assert.Equal(t, fresh+2, aged, "patterns older than a week get a small bump")
}

func TestService_Priority_OccurrenceCapped(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	s := svc.(*service)
	reg := NewRegistry(DefaultRegistryConfig())

	at10 := s.priority(&Entry{
		Severity: SeverityLow, OccurrenceCount: 10, CrossProjectCount: 1,
		CreatedAt: s.now(),
	}, reg)
	at50 := s.priority(&Entry{
		Severity: SeverityLow, OccurrenceCount: 50, CrossProjectCount: 1,
		CreatedAt: s.now(),
	}, reg)

	assert.Equal(t, at10, at50, "occurrence contribution saturates at ten")
}
