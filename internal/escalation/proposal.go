package escalation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// changeIDPrefix marks auto-generated change identifiers.
const changeIDPrefix = "auto-"

// enforcementHint suggests where a preventing hook should run for a category.
func enforcementHint(c Category) string {
	switch c {
	case CategorySecurity:
		return "before or after the action"
	case CategoryGovernance:
		return "before the action"
	case CategoryTesting:
		return "after the action"
	case CategoryTooling:
		return "before the action"
	case CategoryPattern:
		return "before the action"
	case CategoryPerformance:
		return "after the action"
	case CategoryDocumentation:
		return "after the action"
	case CategoryMeta:
		return "before the action"
	}
	return "before the action"
}

// GenerateProposal synthesizes the remediation artifact for one symptom hash.
func (s *service) GenerateProposal(ctx context.Context, symptomHash string) (*ProposalResult, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.generate_proposal")
	defer span.End()

	span.SetAttributes(attribute.String("symptom_hash", symptomHash))

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	release, err := s.store.Lock(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock registry: %w", err)
	}
	defer release()

	reg, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	reg.Normalize()

	result, err := s.generateLocked(ctx, reg, symptomHash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if err := s.store.Save(ctx, reg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save registry: %w", err)
	}

	span.SetAttributes(attribute.String("change_id", result.ChangeID))
	return result, nil
}

// GenerateAllPendingProposals generates artifacts for every currently flagged
// pattern. The registry is persisted once at the end, not per entry.
func (s *service) GenerateAllPendingProposals(ctx context.Context) ([]*ProposalResult, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.generate_all_pending")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	release, err := s.store.Lock(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock registry: %w", err)
	}
	defer release()

	reg, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	reg.Normalize()

	var results []*ProposalResult
	for _, pattern := range s.detectPatterns(reg) {
		result, err := s.generateLocked(ctx, reg, pattern.SymptomHash)
		if err != nil {
			// A single failed pattern must not abort the batch.
			s.logger.Error("failed to generate proposal",
				zap.String("symptom_hash", pattern.SymptomHash),
				zap.Error(err))
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	if len(results) > 0 {
		if err := s.store.Save(ctx, reg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, fmt.Errorf("failed to save registry: %w", err)
		}
	}

	span.SetAttributes(attribute.Int("proposal_count", len(results)))
	return results, nil
}

// generateLocked synthesizes one proposal against an already-loaded registry.
// Policy-suppressed cases return (nil, nil) after logging the reason. The
// caller owns locking and persistence.
func (s *service) generateLocked(ctx context.Context, reg *Registry, symptomHash string) (*ProposalResult, error) {
	if !reg.Config.AutoProposalEnabled {
		s.logger.Info("auto-proposal disabled, skipping",
			zap.String("symptom_hash", symptomHash))
		return nil, nil
	}

	entries := reg.EntriesForHash(symptomHash)
	if len(entries) == 0 {
		s.logger.Warn("no escalations for symptom hash, skipping proposal",
			zap.String("symptom_hash", symptomHash))
		return nil, nil
	}

	sortEntries(entries)
	primary := entries[0]

	if primary.Category == CategoryMeta {
		s.logger.Info("meta escalation requires human triage, skipping proposal",
			zap.String("symptom_hash", symptomHash),
			zap.String("entry_id", primary.ID))
		return nil, nil
	}
	if primary.GeneratedProposalPath != "" {
		s.logger.Info("proposal already generated, skipping",
			zap.String("symptom_hash", symptomHash),
			zap.String("path", primary.GeneratedProposalPath))
		return nil, nil
	}

	changeID := changeIDPrefix + Slug(primary.Symptom)
	docs := s.synthesizeDocs(changeID, entries)

	path, err := s.artifacts.WriteProposal(ctx, changeID, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to write proposal artifact: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		e.Status = StatusProposalGenerated
		e.GeneratedProposalPath = path
		ids = append(ids, e.ID)
	}

	if s.proposalCounter != nil {
		s.proposalCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", string(primary.Category)),
		))
	}

	s.logger.Info("generated remediation proposal",
		zap.String("change_id", changeID),
		zap.String("path", path),
		zap.String("symptom_hash", symptomHash),
		zap.Int("escalation_count", len(ids)))

	return &ProposalResult{
		ChangeID:      changeID,
		ProposalPath:  path,
		SymptomHash:   symptomHash,
		EscalationIDs: ids,
	}, nil
}

// synthesizeDocs builds the three proposal documents. Output is a pure
// function of the entry set except for the generated-at stamp in the
// proposal document.
func (s *service) synthesizeDocs(changeID string, entries []*Entry) ProposalDocs {
	primary := entries[0]

	symptoms := dedupeStrings(entries, func(e *Entry) string { return e.Symptom })
	solutions := dedupeStrings(entries, func(e *Entry) string { return e.ProposedSolution })

	projectSet := make(map[string]struct{})
	var projects []string
	totalOccurrences := 0
	severities := make([]Severity, 0, len(entries))
	for _, e := range entries {
		totalOccurrences += e.OccurrenceCount
		severities = append(severities, e.Severity)
		for _, p := range e.RelatedProjects {
			if _, ok := projectSet[p]; !ok {
				projectSet[p] = struct{}{}
				projects = append(projects, p)
			}
		}
	}
	maxSev := MaxSeverity(severities)

	var proposal strings.Builder
	fmt.Fprintf(&proposal, "# Remediation Proposal: %s\n\n", changeID)
	fmt.Fprintf(&proposal, "Generated: %s\n\n", s.now().UTC().Format(time.RFC3339))
	proposal.WriteString("## Problem\n\n")
	fmt.Fprintf(&proposal, "%s\n\n", primary.Symptom)
	fmt.Fprintf(&proposal, "Reported %d time(s) across %d project(s). Maximum severity: %s.\n\n",
		totalOccurrences, len(projects), maxSev)
	proposal.WriteString("## Observed Symptoms\n\n")
	for _, sym := range symptoms {
		fmt.Fprintf(&proposal, "- %s\n", sym)
	}
	proposal.WriteString("\n## Proposed Solutions\n\n")
	if len(solutions) == 0 {
		proposal.WriteString("- No solution proposed by reporters; investigation required.\n")
	}
	for _, sol := range solutions {
		fmt.Fprintf(&proposal, "- %s\n", sol)
	}
	proposal.WriteString("\n## Affected Sources\n\n")
	for _, p := range projects {
		fmt.Fprintf(&proposal, "- %s\n", p)
	}
	proposal.WriteString("\n## Evidence\n\n")
	proposal.WriteString("| Escalation | Source | Severity | Occurrences | First Seen |\n")
	proposal.WriteString("|---|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&proposal, "| %s | %s | %s | %d | %s |\n",
			shortID(e.ID), sourceLabel(e), e.Severity, e.OccurrenceCount,
			e.CreatedAt.UTC().Format("2006-01-02"))
	}

	var tasks strings.Builder
	fmt.Fprintf(&tasks, "# Tasks: %s\n\n", changeID)
	tasks.WriteString("## Investigation\n\n")
	fmt.Fprintf(&tasks, "- [ ] Reproduce the reported problem: %s\n", primary.Symptom)
	for _, e := range entries {
		fmt.Fprintf(&tasks, "- [ ] Review escalation %s from %s\n", shortID(e.ID), sourceLabel(e))
	}
	tasks.WriteString("\n## Design\n\n")
	tasks.WriteString("- [ ] Decide the enforcement mechanism and its placement\n")
	tasks.WriteString("- [ ] Review proposed solutions with affected sources\n")
	tasks.WriteString("\n## Implementation\n\n")
	tasks.WriteString("- [ ] Implement the remediation\n")
	tasks.WriteString("- [ ] Add regression coverage\n")
	tasks.WriteString("\n## Integration\n\n")
	tasks.WriteString("- [ ] Roll out to all affected sources\n")
	tasks.WriteString("\n## Resolution\n\n")
	tasks.WriteString("- [ ] Mark contributing escalations resolved\n")

	hint := enforcementHint(primary.Category)
	var reqs strings.Builder
	fmt.Fprintf(&reqs, "# Requirements: %s\n\n", changeID)
	fmt.Fprintf(&reqs, "Category: %s. Suggested enforcement point: %s.\n\n", primary.Category, hint)
	reqs.WriteString("## Requirement: Prevention\n\n")
	fmt.Fprintf(&reqs, "The system SHALL prevent recurrence of: %s\n\n", primary.Symptom)
	reqs.WriteString("### Scenario: Problem is blocked\n\n")
	fmt.Fprintf(&reqs, "- GIVEN a change that would reintroduce the problem\n")
	fmt.Fprintf(&reqs, "- WHEN enforcement runs %s\n", hint)
	fmt.Fprintf(&reqs, "- THEN the change is rejected with a clear message\n\n")
	reqs.WriteString("## Requirement: Logging\n\n")
	reqs.WriteString("The system SHALL record every enforcement decision.\n\n")
	reqs.WriteString("### Scenario: Decision is auditable\n\n")
	reqs.WriteString("- GIVEN enforcement has evaluated a change\n")
	reqs.WriteString("- WHEN the decision is made\n")
	reqs.WriteString("- THEN the decision and its reason are logged\n")

	return ProposalDocs{
		Proposal:     proposal.String(),
		Tasks:        tasks.String(),
		Requirements: reqs.String(),
	}
}

// dedupeStrings collects distinct non-empty values in first-seen order.
func dedupeStrings(entries []*Entry, field func(*Entry) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		v := strings.TrimSpace(field(e))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sourceLabel(e *Entry) string {
	if e.SourceName != "" {
		return e.SourceName
	}
	return e.SourcePath
}
