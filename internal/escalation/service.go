// Package escalation implements the escalation deduplication and
// auto-remediation pipeline: free-text problem reports are deduplicated by
// normalized meaning, tracked for recurrence across sources, and turned into
// structured remediation proposals once a threshold is crossed.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/escalated/internal/escalation"

// Store is durable keyed storage for the registry. Implementations must
// serialize concurrent read-modify-write cycles across processes; Lock
// acquires that exclusion and the returned release function ends it.
type Store interface {
	// Lock acquires exclusive access to the registry until release is called.
	Lock(ctx context.Context) (release func(), err error)

	// Load reads the registry. A missing backing file is not an error: Load
	// returns a fresh registry with default config.
	Load(ctx context.Context) (*Registry, error)

	// Save persists the registry, rewriting its lastUpdated stamp.
	Save(ctx context.Context, reg *Registry) error
}

// Scrubber redacts secret material from report text. Scrubbing runs before
// hashing so two reports of the same leak land on the same entry.
type Scrubber interface {
	Scrub(content string) string
}

// ProposalDocs are the three documents of one remediation artifact.
type ProposalDocs struct {
	Proposal     string
	Tasks        string
	Requirements string
}

// ArtifactWriter persists proposal documents under a change-identifier path.
type ArtifactWriter interface {
	// WriteProposal writes the three documents under changeID and returns the
	// directory path they were written to.
	WriteProposal(ctx context.Context, changeID string, docs ProposalDocs) (string, error)
}

// Service provides the escalation pipeline operations.
type Service interface {
	// Ingest records one problem report, deduplicating by symptom hash and
	// applying the cooldown gate. Invalid reports (empty symptom) yield a nil
	// result and no error so a malformed report cannot abort a caller.
	Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error)

	// DetectPatterns returns every pattern currently over threshold, sorted
	// by priority descending.
	DetectPatterns(ctx context.Context) ([]*DetectedPattern, error)

	// GroupBySimilarity clusters entries whose symptoms hash differently but
	// read alike. threshold <= 0 uses the configured default.
	GroupBySimilarity(ctx context.Context, threshold float64) ([]*SimilarityGroup, error)

	// GenerateProposal synthesizes the remediation artifact for one symptom
	// hash. Policy-suppressed cases (no entries, meta category, already
	// generated) return a nil result and no error.
	GenerateProposal(ctx context.Context, symptomHash string) (*ProposalResult, error)

	// GenerateAllPendingProposals generates artifacts for every pattern the
	// detector currently flags, persisting the registry once at the end.
	GenerateAllPendingProposals(ctx context.Context) ([]*ProposalResult, error)

	// Summary computes the read-side aggregation for status display.
	Summary(ctx context.Context, topN int) (*Summary, error)

	// GroupBySeverity buckets all entries by severity, most urgent first,
	// omitting empty buckets.
	GroupBySeverity(ctx context.Context) ([]*SeverityGroup, error)

	// Close closes the service.
	Close() error
}

// Config configures the escalation service.
type Config struct {
	// Defaults seeds the registry config when the store has no prior data.
	Defaults RegistryConfig

	// SimilarityThreshold is the Jaccard cutoff for similarity grouping
	// (default: 0.5).
	SimilarityThreshold float64

	// Scrubber redacts secrets from report text before persistence.
	// Optional; nil persists text as received.
	Scrubber Scrubber
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		Defaults:            DefaultRegistryConfig(),
		SimilarityThreshold: 0.5,
	}
}

// service implements the Service interface.
type service struct {
	config    *Config
	store     Store
	artifacts ArtifactWriter
	logger    *zap.Logger

	// now is swappable for tests.
	now func() time.Time

	// Telemetry
	tracer          trace.Tracer
	meter           metric.Meter
	ingestCounter   metric.Int64Counter
	cooldownCounter metric.Int64Counter
	patternCounter  metric.Int64Counter
	proposalCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService creates a new escalation service.
func NewService(cfg *Config, store Store, artifacts ArtifactWriter, logger *zap.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.5
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if artifacts == nil {
		return nil, errors.New("artifact writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		config:    cfg,
		store:     store,
		artifacts: artifacts,
		logger:    logger,
		now:       time.Now,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.ingestCounter, err = s.meter.Int64Counter(
		"escalated.escalation.ingests_total",
		metric.WithDescription("Total number of admitted escalation reports"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		s.logger.Warn("failed to create ingest counter", zap.Error(err))
	}

	s.cooldownCounter, err = s.meter.Int64Counter(
		"escalated.escalation.cooldown_rejects_total",
		metric.WithDescription("Total number of reports dropped by the cooldown gate"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		s.logger.Warn("failed to create cooldown counter", zap.Error(err))
	}

	s.patternCounter, err = s.meter.Int64Counter(
		"escalated.escalation.patterns_detected_total",
		metric.WithDescription("Total number of threshold crossings"),
		metric.WithUnit("{pattern}"),
	)
	if err != nil {
		s.logger.Warn("failed to create pattern counter", zap.Error(err))
	}

	s.proposalCounter, err = s.meter.Int64Counter(
		"escalated.escalation.proposals_generated_total",
		metric.WithDescription("Total number of remediation proposals generated"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		s.logger.Warn("failed to create proposal counter", zap.Error(err))
	}
}

func (s *service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("service is closed")
	}
	return nil
}

// Ingest records one problem report.
func (s *service) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.ingest")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if req == nil || strings.TrimSpace(req.Symptom) == "" {
		s.logger.Warn("ignoring escalation with empty symptom",
			zap.String("source", sourcePathOf(req)))
		return nil, nil
	}
	if !req.Category.Valid() {
		s.logger.Warn("ignoring escalation with unknown category",
			zap.String("category", string(req.Category)),
			zap.String("source", req.SourcePath))
		return nil, nil
	}
	if !req.Severity.Valid() {
		s.logger.Warn("ignoring escalation with unknown severity",
			zap.String("severity", string(req.Severity)),
			zap.String("source", req.SourcePath))
		return nil, nil
	}

	symptom := req.Symptom
	detail := req.Context
	solution := req.ProposedSolution
	if s.config.Scrubber != nil {
		symptom = s.config.Scrubber.Scrub(symptom)
		detail = s.config.Scrubber.Scrub(detail)
		solution = s.config.Scrubber.Scrub(solution)
	}

	hash := SymptomHash(symptom)
	span.SetAttributes(
		attribute.String("symptom_hash", hash),
		attribute.String("category", string(req.Category)),
		attribute.String("severity", string(req.Severity)),
		attribute.String("source", req.SourcePath),
	)

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
	s.seedConfig(reg)

	now := s.now()
	entry := primaryEntry(reg, hash)

	// Cooldown gate. High and critical severity always admit: urgent issues
	// must never be silently dropped.
	if entry != nil && req.Severity.Rank() < SeverityHigh.Rank() && entry.HasProject(req.SourcePath) {
		if entry.CooldownUntil != nil && now.Before(*entry.CooldownUntil) {
			if s.cooldownCounter != nil {
				s.cooldownCounter.Add(ctx, 1, metric.WithAttributes(
					attribute.String("severity", string(req.Severity)),
				))
			}
			s.logger.Debug("cooldown active, dropping repeat report",
				zap.String("symptom_hash", hash),
				zap.String("source", req.SourcePath),
				zap.Time("cooldown_until", *entry.CooldownUntil))
			return &IngestResult{
				ID:               entry.ID,
				NovelCount:       entry.OccurrenceCount,
				Entry:            entry,
				CooldownRejected: true,
			}, nil
		}
	}

	isNovel := entry == nil
	triggeredBefore := false
	if entry != nil {
		triggeredBefore = s.shouldTriggerProposal(entry, reg)
	}

	if isNovel {
		entry = &Entry{
			ID:                uuid.New().String(),
			SymptomHash:       hash,
			Symptom:           symptom,
			Context:           detail,
			ProposedSolution:  solution,
			Category:          req.Category,
			Severity:          req.Severity,
			Status:            StatusPending,
			SourcePath:        req.SourcePath,
			SourceName:        req.SourceName,
			OccurrenceCount:   1,
			CrossProjectCount: 1,
			RelatedProjects:   []string{req.SourcePath},
			RelatedHookNames:  req.RelatedHooks,
			CreatedAt:         now,
			LastEscalatedAt:   now,
		}
		reg.Escalations[entry.ID] = entry
	} else {
		if entry.HasProject(req.SourcePath) {
			entry.OccurrenceCount++
		} else {
			entry.RelatedProjects = append(entry.RelatedProjects, req.SourcePath)
			entry.CrossProjectCount = len(entry.RelatedProjects)
		}
		// Repeats can raise urgency but never lower it.
		if req.Severity.Rank() > entry.Severity.Rank() {
			entry.Severity = req.Severity
		}
		for _, h := range req.RelatedHooks {
			entry.RelatedHookNames = appendUnique(entry.RelatedHookNames, h)
		}
		entry.LastEscalatedAt = now
	}

	cooldown := now.Add(time.Duration(reg.Config.CooldownMinutes) * time.Minute)
	entry.CooldownUntil = &cooldown

	reg.SymptomIndex[hash] = appendUnique(reg.SymptomIndex[hash], entry.ID)
	reg.ProjectIndex[req.SourcePath] = appendUnique(reg.ProjectIndex[req.SourcePath], entry.ID)

	triggeredAfter := s.shouldTriggerProposal(entry, reg)
	newlyTriggered := !triggeredBefore && triggeredAfter
	if newlyTriggered {
		if entry.Status == StatusPending || entry.Status == StatusAcknowledged {
			entry.Status = StatusPatternDetected
		}
		if s.patternCounter != nil {
			s.patternCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("category", string(entry.Category)),
			))
		}
	}

	if err := s.store.Save(ctx, reg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save registry: %w", err)
	}

	if s.ingestCounter != nil {
		s.ingestCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", string(req.Category)),
			attribute.String("severity", string(req.Severity)),
			attribute.Bool("novel", isNovel),
		))
	}

	s.logger.Info("ingested escalation",
		zap.String("id", entry.ID),
		zap.String("symptom_hash", hash),
		zap.String("source", req.SourcePath),
		zap.Bool("novel", isNovel),
		zap.Int("occurrence_count", entry.OccurrenceCount),
		zap.Int("cross_project_count", entry.CrossProjectCount),
		zap.Bool("pattern_detected", newlyTriggered))

	span.SetAttributes(
		attribute.String("entry_id", entry.ID),
		attribute.Bool("novel", isNovel),
		attribute.Bool("pattern_detected", newlyTriggered),
	)

	return &IngestResult{
		ID:              entry.ID,
		IsNovel:         isNovel,
		NovelCount:      entry.OccurrenceCount,
		Entry:           entry,
		PatternDetected: newlyTriggered,
	}, nil
}

// seedConfig fills a freshly initialized registry with the service defaults.
func (s *service) seedConfig(reg *Registry) {
	if len(reg.Escalations) == 0 && reg.LastUpdated.IsZero() {
		reg.Config = s.config.Defaults
	}
	reg.Normalize()
}

// primaryEntry resolves the single logical entry for a hash. When the index
// carries duplicates the earliest-created entry wins, deterministically.
func primaryEntry(reg *Registry, hash string) *Entry {
	var primary *Entry
	for _, e := range reg.EntriesForHash(hash) {
		if primary == nil || e.CreatedAt.Before(primary.CreatedAt) ||
			(e.CreatedAt.Equal(primary.CreatedAt) && e.ID < primary.ID) {
			primary = e
		}
	}
	return primary
}

// sortEntries orders entries by creation time then id so every consumer sees
// the same deterministic order.
func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}

func sourcePathOf(req *IngestRequest) string {
	if req == nil {
		return ""
	}
	return req.SourcePath
}

// Close closes the service.
func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
