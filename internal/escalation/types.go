package escalation

import (
	"time"
)

// Category classifies what kind of problem an escalation reports.
type Category string

const (
	// CategoryGovernance covers process and policy violations.
	CategoryGovernance Category = "governance"
	// CategoryTesting covers test gaps and test failures.
	CategoryTesting Category = "testing"
	// CategoryTooling covers broken or missing developer tooling.
	CategoryTooling Category = "tooling"
	// CategoryPattern covers recurring anti-patterns in code or workflow.
	CategoryPattern Category = "pattern"
	// CategoryPerformance covers slowness and resource exhaustion.
	CategoryPerformance Category = "performance"
	// CategorySecurity covers security findings.
	CategorySecurity Category = "security"
	// CategoryDocumentation covers missing or stale documentation.
	CategoryDocumentation Category = "documentation"
	// CategoryMeta covers reports about the escalation system itself.
	// Meta escalations require human triage and are never auto-proposed.
	CategoryMeta Category = "meta"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryGovernance,
	CategoryTesting,
	CategoryTooling,
	CategoryPattern,
	CategoryPerformance,
	CategorySecurity,
	CategoryDocumentation,
	CategoryMeta,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGovernance, CategoryTesting, CategoryTooling, CategoryPattern,
		CategoryPerformance, CategorySecurity, CategoryDocumentation, CategoryMeta:
		return true
	}
	return false
}

// Severity indicates how urgent an escalation is.
type Severity string

const (
	// SeverityLow is informational.
	SeverityLow Severity = "low"
	// SeverityMedium may need attention eventually.
	SeverityMedium Severity = "medium"
	// SeverityHigh needs attention soon and bypasses the cooldown gate.
	SeverityHigh Severity = "high"
	// SeverityCritical needs immediate attention and bypasses the cooldown gate.
	SeverityCritical Severity = "critical"
)

// SeveritiesDescending lists severities from most to least urgent.
var SeveritiesDescending = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
}

// severityRank orders severities for comparison. Higher is more urgent.
// Comparison goes through this table, never through string ordering.
var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the ordering rank of the severity (higher is more urgent).
// Unknown severities rank below low.
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the most urgent of the given severities.
// Returns SeverityLow when the list is empty.
func MaxSeverity(severities []Severity) Severity {
	max := SeverityLow
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}

// Status is the lifecycle state of an escalation entry.
type Status string

const (
	// StatusPending is the initial state of a newly ingested escalation.
	StatusPending Status = "pending"
	// StatusAcknowledged means a human has seen the escalation.
	StatusAcknowledged Status = "acknowledged"
	// StatusPatternDetected means the recurrence threshold has been crossed.
	StatusPatternDetected Status = "pattern-detected"
	// StatusProposalGenerated means a remediation proposal has been written.
	StatusProposalGenerated Status = "proposal-generated"
	// StatusHookImplemented means the proposed remediation is enforced by a hook.
	StatusHookImplemented Status = "hook-implemented"
	// StatusResolved is terminal.
	StatusResolved Status = "resolved"
	// StatusRejected is terminal and reachable from any non-terminal state.
	StatusRejected Status = "rejected"
)

// terminalForProposal reports whether an entry in this status must never be
// picked up for (re-)proposal.
func (s Status) terminalForProposal() bool {
	switch s {
	case StatusProposalGenerated, StatusHookImplemented, StatusResolved:
		return true
	case StatusPending, StatusAcknowledged, StatusPatternDetected, StatusRejected:
		return false
	}
	return false
}

// Entry is one distinct reported problem, aggregated across repeats.
// Symptom, Context and ProposedSolution are immutable after creation; repeat
// reports only touch counters, timestamps, the project set and status.
type Entry struct {
	ID               string   `json:"id"`
	SymptomHash      string   `json:"symptomHash"`
	Symptom          string   `json:"symptom"`
	Context          string   `json:"context,omitempty"`
	ProposedSolution string   `json:"proposedSolution,omitempty"`
	Category         Category `json:"category"`
	Severity         Severity `json:"severity"`
	Status           Status   `json:"status"`

	// SourcePath and SourceName identify the first reporter.
	SourcePath string `json:"sourcePath"`
	SourceName string `json:"sourceName,omitempty"`

	// OccurrenceCount is incremented on every admitted repeat from the same
	// source. Cross-source reports grow RelatedProjects instead.
	OccurrenceCount   int      `json:"occurrenceCount"`
	CrossProjectCount int      `json:"crossProjectCount"`
	RelatedProjects   []string `json:"relatedProjects"`

	RelatedCorrectionIDs []string `json:"relatedCorrectionIds,omitempty"`
	RelatedHookNames     []string `json:"relatedHookNames,omitempty"`

	// GeneratedProposalPath is set exactly once, when a proposal is synthesized.
	GeneratedProposalPath string `json:"generatedProposalPath,omitempty"`

	CreatedAt       time.Time  `json:"createdAt"`
	LastEscalatedAt time.Time  `json:"lastEscalatedAt"`
	CooldownUntil   *time.Time `json:"cooldownUntil,omitempty"`

	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolutionNote  string     `json:"resolutionNote,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// HasProject reports whether the given source path already reported this entry.
func (e *Entry) HasProject(sourcePath string) bool {
	for _, p := range e.RelatedProjects {
		if p == sourcePath {
			return true
		}
	}
	return false
}

// RegistryConfig holds the tunable thresholds persisted alongside the data.
type RegistryConfig struct {
	PatternThreshold      int              `json:"patternThreshold"`
	CrossProjectThreshold int              `json:"crossProjectThreshold"`
	CooldownMinutes       int              `json:"cooldownMinutes"`
	AutoProposalEnabled   bool             `json:"autoProposalEnabled"`
	SeverityWeights       map[Severity]int `json:"severityWeights"`
}

// DefaultRegistryConfig returns the default thresholds.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PatternThreshold:      3,
		CrossProjectThreshold: 2,
		CooldownMinutes:       30,
		AutoProposalEnabled:   true,
		SeverityWeights: map[Severity]int{
			SeverityCritical: 10,
			SeverityHigh:     5,
			SeverityMedium:   2,
			SeverityLow:      1,
		},
	}
}

// Weight returns the configured weight for a severity, falling back to the
// default table for severities missing from a hand-edited registry file.
func (c RegistryConfig) Weight(s Severity) int {
	if w, ok := c.SeverityWeights[s]; ok {
		return w
	}
	return DefaultRegistryConfig().SeverityWeights[s]
}

// Registry is the aggregate root: all escalation entries plus two secondary
// indices and the threshold configuration.
//
// Index invariant: every id appearing in SymptomIndex or ProjectIndex exists
// in Escalations. The indices allow multiplicity (a hash or project may map
// to several ids) even though ingest normally upserts a single entry per hash.
type Registry struct {
	Escalations  map[string]*Entry   `json:"escalations"`
	SymptomIndex map[string][]string `json:"symptomIndex"`
	ProjectIndex map[string][]string `json:"projectIndex"`
	Config       RegistryConfig      `json:"config"`
	LastUpdated  time.Time           `json:"lastUpdated"`
}

// NewRegistry returns an empty registry with the given configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		Escalations:  make(map[string]*Entry),
		SymptomIndex: make(map[string][]string),
		ProjectIndex: make(map[string][]string),
		Config:       cfg,
	}
}

// Normalize repairs nil maps after JSON decoding and fills config gaps so the
// rest of the code never has to nil-check.
func (r *Registry) Normalize() {
	if r.Escalations == nil {
		r.Escalations = make(map[string]*Entry)
	}
	if r.SymptomIndex == nil {
		r.SymptomIndex = make(map[string][]string)
	}
	if r.ProjectIndex == nil {
		r.ProjectIndex = make(map[string][]string)
	}
	def := DefaultRegistryConfig()
	if r.Config.PatternThreshold <= 0 {
		r.Config.PatternThreshold = def.PatternThreshold
	}
	if r.Config.CrossProjectThreshold <= 0 {
		r.Config.CrossProjectThreshold = def.CrossProjectThreshold
	}
	if r.Config.CooldownMinutes <= 0 {
		r.Config.CooldownMinutes = def.CooldownMinutes
	}
	if r.Config.SeverityWeights == nil {
		r.Config.SeverityWeights = def.SeverityWeights
	}
}

// EntriesForHash resolves the symptom index for a hash, skipping any dangling
// ids. Callers must tolerate multiplicity per the index contract.
func (r *Registry) EntriesForHash(hash string) []*Entry {
	var entries []*Entry
	for _, id := range r.SymptomIndex[hash] {
		if e, ok := r.Escalations[id]; ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// IngestRequest is a single problem report from one source.
type IngestRequest struct {
	Symptom          string   `json:"symptom"`
	Context          string   `json:"context,omitempty"`
	ProposedSolution string   `json:"proposedSolution,omitempty"`
	Category         Category `json:"category"`
	Severity         Severity `json:"severity"`
	SourcePath       string   `json:"sourcePath"`
	SourceName       string   `json:"sourceName,omitempty"`
	RelatedHooks     []string `json:"relatedHooks,omitempty"`
}

// IngestResult reports what a single ingest call did.
type IngestResult struct {
	// ID of the entry the report landed on. Empty when the report was
	// rejected as invalid before reaching the registry.
	ID string `json:"id"`
	// IsNovel is true only when this call created a brand-new entry.
	IsNovel bool `json:"isNovel"`
	// NovelCount is the entry's occurrence count after this call.
	NovelCount int `json:"novelCount"`
	// Entry is a snapshot of the entry after this call.
	Entry *Entry `json:"entry,omitempty"`
	// PatternDetected is true only when this call newly crossed a threshold.
	PatternDetected bool `json:"patternDetected"`
	// CooldownRejected is true when the report was dropped by the cooldown
	// gate. This is expected behavior, not a failure.
	CooldownRejected bool `json:"cooldownRejected,omitempty"`
}

// DetectedPattern is one recurring problem, merged across any duplicate index
// entries for its symptom hash.
type DetectedPattern struct {
	SymptomHash       string   `json:"symptomHash"`
	Symptom           string   `json:"symptom"`
	Category          Category `json:"category"`
	Severity          Severity `json:"severity"`
	Priority          int      `json:"priority"`
	OccurrenceCount   int      `json:"occurrenceCount"`
	CrossProjectCount int      `json:"crossProjectCount"`
	EntryIDs          []string `json:"entryIds"`
}

// SimilarityGroup is a cluster of entries whose symptoms hash differently but
// read alike.
type SimilarityGroup struct {
	// Seed is the entry the group was built around.
	Seed    *Entry   `json:"seed"`
	Entries []*Entry `json:"entries"`
}

// ProposalResult identifies a generated remediation artifact.
type ProposalResult struct {
	ChangeID      string   `json:"changeId"`
	ProposalPath  string   `json:"proposalPath"`
	SymptomHash   string   `json:"symptomHash"`
	EscalationIDs []string `json:"escalationIds"`
}

// SeverityGroup is one bucket of a severity-ordered grouping.
type SeverityGroup struct {
	Severity Severity `json:"severity"`
	Entries  []*Entry `json:"entries"`
}

// Summary is the read-side aggregation for status display. It is computed
// fresh from the store on every call; it is never cached.
type Summary struct {
	Total           int                `json:"total"`
	Pending         int                `json:"pending"`
	PatternDetected int                `json:"patternDetected"`
	HighOrCritical  int                `json:"highOrCritical"`
	TopPatterns     []*DetectedPattern `json:"topPatterns"`
}
