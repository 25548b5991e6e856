package escalation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// defaultTopN bounds the ranked pattern list in status output.
const defaultTopN = 5

// Summary computes the read-side aggregation for status display. Staleness
// here would misreport action-needed state, so the summary is recomputed from
// the store on every call and never cached.
func (s *service) Summary(ctx context.Context, topN int) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.summary")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if topN <= 0 {
		topN = defaultTopN
	}

	reg, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	reg.Normalize()

	summary := &Summary{Total: len(reg.Escalations)}
	for _, e := range reg.Escalations {
		switch e.Status {
		case StatusPending:
			summary.Pending++
		case StatusPatternDetected:
			summary.PatternDetected++
		case StatusAcknowledged, StatusProposalGenerated, StatusHookImplemented,
			StatusResolved, StatusRejected:
		}
		if e.Severity.Rank() >= SeverityHigh.Rank() {
			summary.HighOrCritical++
		}
	}

	ranked := s.rankPatterns(reg)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	summary.TopPatterns = ranked

	span.SetAttributes(
		attribute.Int("total", summary.Total),
		attribute.Int("pending", summary.Pending),
	)
	return summary, nil
}

// GroupBySeverity buckets all entries by severity, most urgent first.
// Severities with no members are omitted.
func (s *service) GroupBySeverity(ctx context.Context) ([]*SeverityGroup, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.group_by_severity")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	reg, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	reg.Normalize()

	buckets := make(map[Severity][]*Entry)
	for _, e := range reg.Escalations {
		buckets[e.Severity] = append(buckets[e.Severity], e)
	}

	var groups []*SeverityGroup
	for _, sev := range SeveritiesDescending {
		entries := buckets[sev]
		if len(entries) == 0 {
			continue
		}
		sortEntries(entries)
		groups = append(groups, &SeverityGroup{Severity: sev, Entries: entries})
	}

	span.SetAttributes(attribute.Int("group_count", len(groups)))
	return groups, nil
}
