package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/fyrsmithlabs/escalated/internal/mcp"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the escalation tools over MCP on stdio",
	Long: `Serve the escalation tools over MCP on stdio.

Exposes escalation_ingest, escalation_patterns, escalation_report, and
escalation_propose to MCP clients. Logs go to stderr; stdout carries the
protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		cfg := mcpserver.DefaultConfig()
		cfg.Version = version
		cfg.Logger = a.logger

		srv, err := mcpserver.NewServer(cfg, a.svc)
		if err != nil {
			return err
		}
		defer srv.Close()

		return srv.Run(cmd.Context())
	},
}
