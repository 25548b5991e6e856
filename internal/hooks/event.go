// Package hooks adapts host tool-interception events into escalation
// reports.
//
// The host invokes escalated once per tool event with a JSON payload on
// stdin. Only the escalation payload is interpreted here; the surrounding
// allow/deny mechanics belong to the host.
package hooks

import (
	"encoding/json"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

// Event is the host's per-tool-call payload, reduced to the fields the
// escalation pipeline consumes.
type Event struct {
	SessionID     string `json:"session_id,omitempty"`
	HookEventName string `json:"hook_event_name,omitempty"`
	ToolName      string `json:"tool_name,omitempty"`
	Cwd           string `json:"cwd,omitempty"`

	Escalation *EscalationPayload `json:"escalation,omitempty"`
}

// EscalationPayload is the caller-supplied problem report embedded in an
// event.
type EscalationPayload struct {
	Symptom          string   `json:"symptom"`
	Context          string   `json:"context,omitempty"`
	ProposedSolution string   `json:"proposed_solution,omitempty"`
	Category         string   `json:"category"`
	Severity         string   `json:"severity"`
	SourcePath       string   `json:"source_path,omitempty"`
	SourceName       string   `json:"source_name,omitempty"`
	RelatedHooks     []string `json:"related_hooks,omitempty"`
}

// ParseEvent decodes one event from r. A malformed payload logs a warning
// and returns (nil, false), never an error: escalation-tracking bugs must not
// destabilize the host's hook chain.
func ParseEvent(r io.Reader, logger *zap.Logger) (*Event, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		logger.Warn("discarding malformed hook event", zap.Error(err))
		return nil, false
	}
	return &ev, true
}

// IngestRequest maps the event to an escalation report. Reports without an
// escalation payload return (nil, false); they are ordinary tool events this
// pipeline ignores. Source identity falls back to the event's working
// directory when the payload does not name one.
func (e *Event) IngestRequest() (*escalation.IngestRequest, bool) {
	if e == nil || e.Escalation == nil {
		return nil, false
	}

	p := e.Escalation
	sourcePath := p.SourcePath
	if sourcePath == "" {
		sourcePath = e.Cwd
	}
	sourceName := p.SourceName
	if sourceName == "" && sourcePath != "" {
		sourceName = filepath.Base(sourcePath)
	}

	hooks := p.RelatedHooks
	if len(hooks) == 0 && e.HookEventName != "" {
		hooks = []string{e.HookEventName}
	}

	return &escalation.IngestRequest{
		Symptom:          p.Symptom,
		Context:          p.Context,
		ProposedSolution: p.ProposedSolution,
		Category:         escalation.Category(p.Category),
		Severity:         escalation.Severity(p.Severity),
		SourcePath:       sourcePath,
		SourceName:       sourceName,
		RelatedHooks:     hooks,
	}, true
}
