package escalation

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// patternAgeBonusDays is the age beyond which a lingering pattern gets a
// small priority bump so old problems do not starve behind fresh noise.
const patternAgeBonusDays = 7

// shouldTriggerProposal decides whether an entry is over threshold for
// auto-proposal. Suppression rules run first: meta escalations always require
// human triage, and entries already proposed or terminal stay untouched.
// Either enough repeats from one source or enough distinct sources triggers;
// the conditions are not additive.
func (s *service) shouldTriggerProposal(entry *Entry, reg *Registry) bool {
	if entry.Category == CategoryMeta {
		return false
	}
	if entry.Status.terminalForProposal() {
		return false
	}
	return entry.OccurrenceCount >= reg.Config.PatternThreshold ||
		entry.CrossProjectCount >= reg.Config.CrossProjectThreshold
}

// priority scores an entry for ranking. Higher is more urgent.
func (s *service) priority(entry *Entry, reg *Registry) int {
	score := reg.Config.Weight(entry.Severity) * 10
	occ := entry.OccurrenceCount
	if occ > 10 {
		occ = 10
	}
	score += occ
	score += entry.CrossProjectCount * 3
	ageDays := s.now().Sub(entry.CreatedAt).Hours() / 24
	if ageDays > patternAgeBonusDays {
		score += 2
	}
	return score
}

// DetectPatterns returns every pattern currently over threshold.
func (s *service) DetectPatterns(ctx context.Context) ([]*DetectedPattern, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.detect_patterns")
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

	patterns := s.detectPatterns(reg)

	span.SetAttributes(attribute.Int("pattern_count", len(patterns)))
	return patterns, nil
}

// detectPatterns returns the patterns currently over threshold, sorted by
// priority descending.
func (s *service) detectPatterns(reg *Registry) []*DetectedPattern {
	return s.collectPatterns(reg, true)
}

// rankPatterns is the reporter-side variant: same grouping and scoring, but
// without the threshold filter, so low-volume problems still show up ranked
// in status output.
func (s *service) rankPatterns(reg *Registry) []*DetectedPattern {
	return s.collectPatterns(reg, false)
}

// collectPatterns groups entries by symptom hash, merging any duplicate index
// entries onto the highest-priority representative and taking the maximum
// occurrence and cross-project counts seen across duplicates. Hashes are
// walked in sorted order and the final sort is stable, so equal priorities
// resolve deterministically.
func (s *service) collectPatterns(reg *Registry, overThresholdOnly bool) []*DetectedPattern {
	hashes := make([]string, 0, len(reg.SymptomIndex))
	for hash := range reg.SymptomIndex {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	var patterns []*DetectedPattern
	for _, hash := range hashes {
		entries := reg.EntriesForHash(hash)
		if len(entries) == 0 {
			continue
		}

		rep := entries[0]
		maxOcc, maxCross := rep.OccurrenceCount, rep.CrossProjectCount
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
			if e.OccurrenceCount > maxOcc {
				maxOcc = e.OccurrenceCount
			}
			if e.CrossProjectCount > maxCross {
				maxCross = e.CrossProjectCount
			}
			if s.priority(e, reg) > s.priority(rep, reg) {
				rep = e
			}
		}

		merged := *rep
		merged.OccurrenceCount = maxOcc
		merged.CrossProjectCount = maxCross
		if overThresholdOnly && !s.shouldTriggerProposal(&merged, reg) {
			continue
		}

		patterns = append(patterns, &DetectedPattern{
			SymptomHash:       hash,
			Symptom:           rep.Symptom,
			Category:          rep.Category,
			Severity:          rep.Severity,
			Priority:          s.priority(&merged, reg),
			OccurrenceCount:   maxOcc,
			CrossProjectCount: maxCross,
			EntryIDs:          ids,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Priority > patterns[j].Priority
	})

	return patterns
}
