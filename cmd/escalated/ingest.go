package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
	"github.com/fyrsmithlabs/escalated/internal/hooks"
)

var (
	ingestSymptom    string
	ingestContext    string
	ingestSolution   string
	ingestCategory   string
	ingestSeverity   string
	ingestSourcePath string
	ingestSourceName string
	ingestHooks      []string
	ingestStdin      bool
	ingestJSON       bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestSymptom, "symptom", "", "free-text problem description")
	ingestCmd.Flags().StringVar(&ingestContext, "context", "", "where the problem showed up")
	ingestCmd.Flags().StringVar(&ingestSolution, "solution", "", "proposed solution")
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "tooling", "problem category")
	ingestCmd.Flags().StringVar(&ingestSeverity, "severity", "medium", "severity (low, medium, high, critical)")
	ingestCmd.Flags().StringVar(&ingestSourcePath, "source-path", "", "path identifying the reporting project (defaults to cwd)")
	ingestCmd.Flags().StringVar(&ingestSourceName, "source-name", "", "display name of the reporting project")
	ingestCmd.Flags().StringSliceVar(&ingestHooks, "related-hook", nil, "related hook name (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestStdin, "stdin", false, "read a hook event JSON payload from stdin")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Report a problem into the escalation registry",
	Long: `Report a problem into the escalation registry.

Reports are deduplicated by normalized symptom text; repeats from the same
source within the cooldown window are dropped unless severity is high or
critical.

Examples:
  # Report from flags
  escalated ingest --symptom "Hook failed silently" --severity low

  # Report from a host hook event on stdin
  cat event.json | escalated ingest --stdin`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var req *escalation.IngestRequest
	if ingestStdin {
		ev, ok := hooks.ParseEvent(os.Stdin, a.logger)
		if !ok {
			// Malformed events are dropped without failing the hook chain.
			return nil
		}
		req, ok = ev.IngestRequest()
		if !ok {
			return nil
		}
	} else {
		sourcePath := ingestSourcePath
		if sourcePath == "" {
			if sourcePath, err = os.Getwd(); err != nil {
				return fmt.Errorf("failed to determine source path: %w", err)
			}
		}
		req = &escalation.IngestRequest{
			Symptom:          ingestSymptom,
			Context:          ingestContext,
			ProposedSolution: ingestSolution,
			Category:         escalation.Category(ingestCategory),
			Severity:         escalation.Severity(ingestSeverity),
			SourcePath:       sourcePath,
			SourceName:       ingestSourceName,
			RelatedHooks:     ingestHooks,
		}
	}

	result, err := a.svc.Ingest(cmd.Context(), req)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Println("report ignored: empty symptom or unknown category/severity")
		return nil
	}

	if ingestJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	switch {
	case result.CooldownRejected:
		fmt.Printf("cooldown active for %s; report dropped\n", result.Entry.SymptomHash)
	case result.IsNovel:
		fmt.Printf("recorded new escalation %s (hash %s)\n", shortID(result.ID), result.Entry.SymptomHash)
	default:
		fmt.Printf("recorded repeat of %s (occurrences: %d, projects: %d)\n",
			shortID(result.ID), result.Entry.OccurrenceCount, result.Entry.CrossProjectCount)
	}
	if result.PatternDetected {
		fmt.Println("pattern threshold crossed; run 'escalated propose --all' to generate proposals")
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
