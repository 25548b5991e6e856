package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	proposeAll  bool
	proposeJSON bool
)

func init() {
	rootCmd.AddCommand(proposeCmd)
	proposeCmd.Flags().BoolVar(&proposeAll, "all", false, "generate proposals for every pattern above thresholds")
	proposeCmd.Flags().BoolVar(&proposeJSON, "json", false, "output results as JSON")
}

var proposeCmd = &cobra.Command{
	Use:   "propose [symptom-hash]",
	Short: "Generate change proposal documents for detected patterns",
	Long: `Generate change proposal documents for detected patterns.

With a symptom hash, generates a proposal for that pattern only. With --all,
sweeps every pattern currently above the thresholds. Each proposal is a
directory containing proposal.md, tasks.md, and requirements.md.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !proposeAll && len(args) == 0 {
			return fmt.Errorf("provide a symptom hash or pass --all")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if proposeAll {
			results, err := a.svc.GenerateAllPendingProposals(cmd.Context())
			if err != nil {
				return err
			}
			if proposeJSON {
				return json.NewEncoder(os.Stdout).Encode(results)
			}
			if len(results) == 0 {
				fmt.Println("no patterns needed proposals")
				return nil
			}
			for _, r := range results {
				fmt.Printf("generated %s -> %s\n", r.ChangeID, r.ProposalPath)
			}
			return nil
		}

		result, err := a.svc.GenerateProposal(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Println("no proposal generated (disabled, meta category, or already generated)")
			return nil
		}
		if proposeJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		fmt.Printf("generated %s -> %s\n", result.ChangeID, result.ProposalPath)
		return nil
	},
}
