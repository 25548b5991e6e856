package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	similarThreshold float64
	similarJSON      bool
)

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().Float64Var(&similarThreshold, "threshold", 0, "Jaccard similarity threshold (0 uses the configured default)")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output groups as JSON")
}

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Group escalations whose symptoms overlap",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		groups, err := a.svc.GroupBySimilarity(cmd.Context(), similarThreshold)
		if err != nil {
			return err
		}

		if similarJSON {
			return json.NewEncoder(os.Stdout).Encode(groups)
		}

		if len(groups) == 0 {
			fmt.Println("no escalations to group")
			return nil
		}
		for i, g := range groups {
			fmt.Printf("group %d (%d members):\n", i+1, len(g.Entries))
			for _, m := range g.Entries {
				fmt.Printf("  %s  [%s/%s]  %s\n", m.SymptomHash, m.Category, m.Severity, truncate(m.Symptom, 70))
			}
		}
		return nil
	},
}
