package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var patternsJSON bool

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "output patterns as JSON")
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List symptom groups that crossed the pattern thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		patterns, err := a.svc.DetectPatterns(cmd.Context())
		if err != nil {
			return err
		}

		if patternsJSON {
			return json.NewEncoder(os.Stdout).Encode(patterns)
		}

		if len(patterns) == 0 {
			fmt.Println("no patterns above thresholds")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tPRIORITY\tOCCURRENCES\tPROJECTS\tSEVERITY\tSYMPTOM")
		for _, p := range patterns {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
				p.SymptomHash, p.Priority, p.OccurrenceCount, p.CrossProjectCount,
				p.Severity, truncate(p.Symptom, 60))
		}
		return w.Flush()
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
