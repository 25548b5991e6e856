package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

// registerTools registers all escalation tools with the server.
func (s *Server) registerTools() {
	s.registerIngestTool()
	s.registerPatternsTool()
	s.registerReportTool()
	s.registerProposeTool()
}

// ===== INGEST =====

type ingestInput struct {
	Symptom          string   `json:"symptom" jsonschema:"required,Free-text description of the problem"`
	Context          string   `json:"context,omitempty" jsonschema:"Where and how the problem showed up"`
	ProposedSolution string   `json:"proposed_solution,omitempty" jsonschema:"Caller-suggested fix"`
	Category         string   `json:"category" jsonschema:"required,Problem category (governance testing tooling pattern performance security documentation meta)"`
	Severity         string   `json:"severity" jsonschema:"required,Severity (low medium high critical)"`
	SourcePath       string   `json:"source_path" jsonschema:"required,Path identifying the reporting project"`
	SourceName       string   `json:"source_name,omitempty" jsonschema:"Display name of the reporting project"`
	RelatedHooks     []string `json:"related_hooks,omitempty" jsonschema:"Hook names related to this report"`
}

type ingestOutput struct {
	ID               string `json:"id" jsonschema:"Entry id the report landed on (empty if report was invalid)"`
	IsNovel          bool   `json:"is_novel" jsonschema:"True when this call created a new entry"`
	NovelCount       int    `json:"novel_count" jsonschema:"Occurrence count after this call"`
	PatternDetected  bool   `json:"pattern_detected" jsonschema:"True when this call newly crossed a threshold"`
	CooldownRejected bool   `json:"cooldown_rejected" jsonschema:"True when the report was dropped by the cooldown gate"`
}

func (s *Server) registerIngestTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "escalation_ingest",
		Description: "Report a recurring problem; deduplicates by normalized symptom",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ingestInput) (*mcp.CallToolResult, ingestOutput, error) {
		result, err := s.svc.Ingest(ctx, &escalation.IngestRequest{
			Symptom:          args.Symptom,
			Context:          args.Context,
			ProposedSolution: args.ProposedSolution,
			Category:         escalation.Category(args.Category),
			Severity:         escalation.Severity(args.Severity),
			SourcePath:       args.SourcePath,
			SourceName:       args.SourceName,
			RelatedHooks:     args.RelatedHooks,
		})
		if err != nil {
			s.logger.Error("escalation_ingest failed", zap.Error(err))
			return nil, ingestOutput{}, err
		}
		if result == nil {
			// Invalid report, suppressed by policy rather than failed.
			return nil, ingestOutput{}, nil
		}
		return nil, ingestOutput{
			ID:               result.ID,
			IsNovel:          result.IsNovel,
			NovelCount:       result.NovelCount,
			PatternDetected:  result.PatternDetected,
			CooldownRejected: result.CooldownRejected,
		}, nil
	})
}

// ===== PATTERNS =====

type patternsInput struct{}

type patternsOutput struct {
	Patterns []*escalation.DetectedPattern `json:"patterns" jsonschema:"Patterns over threshold, highest priority first"`
	Count    int                           `json:"count" jsonschema:"Number of patterns"`
}

func (s *Server) registerPatternsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "escalation_patterns",
		Description: "List recurring problems currently over threshold",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args patternsInput) (*mcp.CallToolResult, patternsOutput, error) {
		patterns, err := s.svc.DetectPatterns(ctx)
		if err != nil {
			s.logger.Error("escalation_patterns failed", zap.Error(err))
			return nil, patternsOutput{}, err
		}
		return nil, patternsOutput{Patterns: patterns, Count: len(patterns)}, nil
	})
}

// ===== REPORT =====

type reportInput struct {
	TopN int `json:"top_n,omitempty" jsonschema:"Ranked patterns to include (default: 5)"`
}

type reportOutput struct {
	Summary *escalation.Summary `json:"summary" jsonschema:"Registry status summary"`
}

func (s *Server) registerReportTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "escalation_report",
		Description: "Summarize escalation registry state for status display",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args reportInput) (*mcp.CallToolResult, reportOutput, error) {
		summary, err := s.svc.Summary(ctx, args.TopN)
		if err != nil {
			s.logger.Error("escalation_report failed", zap.Error(err))
			return nil, reportOutput{}, err
		}
		return nil, reportOutput{Summary: summary}, nil
	})
}

// ===== PROPOSE =====

type proposeInput struct {
	SymptomHash string `json:"symptom_hash,omitempty" jsonschema:"Generate for one symptom hash; empty generates for every flagged pattern"`
}

type proposeOutput struct {
	Proposals []*escalation.ProposalResult `json:"proposals" jsonschema:"Generated proposals"`
	Count     int                          `json:"count" jsonschema:"Number of proposals generated"`
}

func (s *Server) registerProposeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "escalation_propose",
		Description: "Generate remediation proposals for flagged patterns",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args proposeInput) (*mcp.CallToolResult, proposeOutput, error) {
		var (
			results []*escalation.ProposalResult
			err     error
		)
		if args.SymptomHash != "" {
			var one *escalation.ProposalResult
			one, err = s.svc.GenerateProposal(ctx, args.SymptomHash)
			if one != nil {
				results = append(results, one)
			}
		} else {
			results, err = s.svc.GenerateAllPendingProposals(ctx)
		}
		if err != nil {
			s.logger.Error("escalation_propose failed", zap.Error(err))
			return nil, proposeOutput{}, err
		}
		return nil, proposeOutput{Proposals: results, Count: len(results)}, nil
	})
}
