package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	reportJSON       bool
	reportTopN       int
	reportBySeverity bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "output report as JSON")
	reportCmd.Flags().IntVar(&reportTopN, "top", 5, "number of top patterns to include")
	reportCmd.Flags().BoolVar(&reportBySeverity, "by-severity", false, "list escalations grouped by severity instead of the summary")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the escalation registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if reportBySeverity {
			groups, err := a.svc.GroupBySeverity(cmd.Context())
			if err != nil {
				return err
			}
			if reportJSON {
				return json.NewEncoder(os.Stdout).Encode(groups)
			}
			for _, g := range groups {
				fmt.Printf("%s (%d):\n", g.Severity, len(g.Entries))
				for _, e := range g.Entries {
					fmt.Printf("  %s  [%s]  %s\n", e.SymptomHash, e.Status, truncate(e.Symptom, 70))
				}
			}
			return nil
		}

		summary, err := a.svc.Summary(cmd.Context(), reportTopN)
		if err != nil {
			return err
		}

		if reportJSON {
			return json.NewEncoder(os.Stdout).Encode(summary)
		}

		fmt.Printf("Total escalations:   %d\n", summary.Total)
		fmt.Printf("Pending:             %d\n", summary.Pending)
		fmt.Printf("Patterns detected:   %d\n", summary.PatternDetected)
		fmt.Printf("High or critical:    %d\n", summary.HighOrCritical)

		if len(summary.TopPatterns) == 0 {
			return nil
		}
		fmt.Println("\nTop patterns:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tPRIORITY\tOCCURRENCES\tPROJECTS\tSYMPTOM")
		for _, p := range summary.TopPatterns {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
				p.SymptomHash, p.Priority, p.OccurrenceCount, p.CrossProjectCount,
				truncate(p.Symptom, 60))
		}
		return w.Flush()
	},
}
