package escalation

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Similarity returns the Jaccard index of the token sets of a and b.
// Two empty inputs compare as identical (1): comparing "no signal" against
// itself is treated as a perfect match. This is an explicit boundary case,
// not a general rule; one-sided empty input scores 0.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}

// GroupBySimilarity clusters entries whose symptom hashes differ but whose
// text is likely about the same issue.
//
// This is single-pass greedy clustering against each group's seed, not a
// globally optimal one, and it is not transitive: the result depends on
// iteration order, which here is creation order for determinism. That is
// acceptable for this advisory workflow.
func (s *service) GroupBySimilarity(ctx context.Context, threshold float64) ([]*SimilarityGroup, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.group_by_similarity")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if threshold <= 0 {
		threshold = s.config.SimilarityThreshold
	}
	span.SetAttributes(attribute.Float64("threshold", threshold))

	reg, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	reg.Normalize()

	entries := make([]*Entry, 0, len(reg.Escalations))
	for _, e := range reg.Escalations {
		entries = append(entries, e)
	}
	sortEntries(entries)

	assigned := make(map[string]bool, len(entries))
	var groups []*SimilarityGroup
	for _, seed := range entries {
		if assigned[seed.ID] {
			continue
		}
		assigned[seed.ID] = true
		group := &SimilarityGroup{Seed: seed, Entries: []*Entry{seed}}

		for _, other := range entries {
			if assigned[other.ID] {
				continue
			}
			if Similarity(seed.Symptom, other.Symptom) >= threshold {
				assigned[other.ID] = true
				group.Entries = append(group.Entries, other)
			}
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Entries) > len(groups[j].Entries)
	})

	span.SetAttributes(attribute.Int("group_count", len(groups)))
	return groups, nil
}
