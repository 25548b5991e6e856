package escalation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_GenerateAllPendingProposals_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, store, artifacts, clock := newTestService(t)

	// Three reports of the same symptom from one source cross the
	// occurrence threshold and yield exactly one proposal.
	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, &IngestRequest{
			Symptom:          "Database connection timeout during deploy",
			ProposedSolution: "Add a connection retry with backoff",
			Category:         CategoryTooling,
			Severity:         SeverityMedium,
			SourcePath:       "/proj/a",
			SourceName:       "project-a",
		})
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}

	results, err := svc.GenerateAllPendingProposals(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.True(t, strings.HasPrefix(result.ChangeID, "auto-"))
	assert.Equal(t, "auto-"+Slug("Database connection timeout during deploy"), result.ChangeID)
	assert.Equal(t, SymptomHash("Database connection timeout during deploy"), result.SymptomHash)
	assert.Len(t, result.EscalationIDs, 1)
	assert.NotEmpty(t, result.ProposalPath)

	docs, ok := artifacts.writes[result.ChangeID]
	require.True(t, ok)

	assert.Contains(t, docs.Proposal, "Database connection timeout during deploy")
	assert.Contains(t, docs.Proposal, "Reported 3 time(s) across 1 project(s)")
	assert.Contains(t, docs.Proposal, "Add a connection retry with backoff")
	assert.Equal(t, 1, strings.Count(docs.Proposal, "| project-a |"),
		"one evidence row per contributing entry")
	assert.Contains(t, docs.Tasks, "- [ ] Reproduce the reported problem")
	assert.Contains(t, docs.Requirements, "The system SHALL prevent recurrence of")

	for _, e := range store.reg.Escalations {
		assert.Equal(t, StatusProposalGenerated, e.Status)
		assert.Equal(t, result.ProposalPath, e.GeneratedProposalPath)
	}
}

func TestService_GenerateProposal_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, artifacts, clock := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}
	hash := SymptomHash("stale cache served after deploy")

	first, err := svc.GenerateProposal(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.GenerateProposal(ctx, hash)
	require.NoError(t, err)
	assert.Nil(t, second, "an already-generated pattern is skipped, not regenerated")
	assert.Len(t, artifacts.writes, 1)

	// The sweep also skips it.
	results, err := svc.GenerateAllPendingProposals(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_GenerateProposal_Suppressions(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown hash", func(t *testing.T) {
		svc, _, artifacts, _ := newTestService(t)

		result, err := svc.GenerateProposal(ctx, "deadbeefdeadbeef")
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Empty(t, artifacts.writes)
	})

	t.Run("meta category", func(t *testing.T) {
		svc, _, artifacts, _ := newTestService(t)

		_, err := svc.Ingest(ctx, &IngestRequest{
			Symptom:    "tracker flags itself",
			Category:   CategoryMeta,
			Severity:   SeverityLow,
			SourcePath: "/proj/a",
		})
		require.NoError(t, err)

		result, err := svc.GenerateProposal(ctx, SymptomHash("tracker flags itself"))
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Empty(t, artifacts.writes)
	})

	t.Run("auto-proposal disabled", func(t *testing.T) {
		store := newMemStore()
		artifacts := &mockArtifacts{}
		cfg := DefaultServiceConfig()
		cfg.Defaults.AutoProposalEnabled = false

		svc, err := NewService(cfg, store, artifacts, zap.NewNop())
		require.NoError(t, err)

		_, err = svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)

		result, err := svc.GenerateProposal(ctx, SymptomHash("stale cache served after deploy"))
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Empty(t, artifacts.writes)
	})
}

func TestService_GenerateProposal_WriterFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	artifacts := &mockArtifacts{err: assert.AnError}

	svc, err := NewService(nil, store, artifacts, zap.NewNop())
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.(*service).now = clock.Now

	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, report("stale cache served after deploy", "/proj/a", SeverityLow))
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
	}

	_, err = svc.GenerateProposal(ctx, SymptomHash("stale cache served after deploy"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write proposal artifact")

	// The batch variant logs and continues instead of failing.
	results, err := svc.GenerateAllPendingProposals(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSynthesizeDocs_MergesDuplicatePhrasings(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	s := svc.(*service)

	now := clock.Now()
	entries := []*Entry{
		{
			ID:              "aaaaaaaa-1111",
			Symptom:         "connection timeout database",
			Severity:        SeverityMedium,
			Category:        CategoryTooling,
			SourcePath:      "/proj/a",
			OccurrenceCount: 2,
			RelatedProjects: []string{"/proj/a"},
			CreatedAt:       now,
		},
		{
			ID:               "bbbbbbbb-2222",
			Symptom:          "database connection timeout",
			ProposedSolution: "retry with backoff",
			Severity:         SeverityHigh,
			Category:         CategoryTooling,
			SourcePath:       "/proj/b",
			OccurrenceCount:  1,
			RelatedProjects:  []string{"/proj/b"},
			CreatedAt:        now.Add(time.Hour),
		},
	}

	docs := s.synthesizeDocs("auto-connection-timeout", entries)

	assert.Contains(t, docs.Proposal, "Reported 3 time(s) across 2 project(s)")
	assert.Contains(t, docs.Proposal, "Maximum severity: high")
	assert.Contains(t, docs.Proposal, "- connection timeout database")
	assert.Contains(t, docs.Proposal, "- database connection timeout")
	assert.Contains(t, docs.Proposal, "| aaaaaaaa |")
	assert.Contains(t, docs.Proposal, "| bbbbbbbb |")
	assert.Contains(t, docs.Tasks, "Review escalation aaaaaaaa from /proj/a")
	assert.Contains(t, docs.Requirements, "Category: tooling")

	again := s.synthesizeDocs("auto-connection-timeout", entries)
	assert.Equal(t, docs, again, "output is deterministic for a fixed clock")
}

func TestEnforcementHint(t *testing.T) {
	assert.Equal(t, "before or after the action", enforcementHint(CategorySecurity))
	assert.Equal(t, "after the action", enforcementHint(CategoryTesting))
	assert.Equal(t, "after the action", enforcementHint(CategoryPerformance))
	assert.Equal(t, "after the action", enforcementHint(CategoryDocumentation))
	assert.Equal(t, "before the action", enforcementHint(CategoryGovernance))
	assert.Equal(t, "before the action", enforcementHint(CategoryTooling))
}
