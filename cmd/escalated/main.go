// Package main implements the escalated CLI: escalation ingestion, pattern
// detection, reporting and proposal generation against a shared registry.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/artifact"
	"github.com/fyrsmithlabs/escalated/internal/config"
	"github.com/fyrsmithlabs/escalated/internal/escalation"
	"github.com/fyrsmithlabs/escalated/internal/logging"
	"github.com/fyrsmithlabs/escalated/internal/registry"
	"github.com/fyrsmithlabs/escalated/internal/secrets"
	"github.com/fyrsmithlabs/escalated/internal/telemetry"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "escalated",
	Short: "Escalation deduplication and auto-remediation pipeline",
	Long: `escalated tracks free-text problem reports from many projects,
deduplicates them by normalized meaning, and generates structured remediation
proposals once a problem recurs often enough or spreads across sources.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
}

// app bundles everything a subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	tel    *telemetry.Telemetry
	svc    escalation.Service
}

// newApp loads configuration and wires the service stack.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Providers must be installed before services create their instruments.
	tel, err := telemetry.Init(context.Background(), cfg.Telemetry, "escalated", version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := registry.NewFileStore(cfg.Registry.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry store: %w", err)
	}

	writer, err := artifact.NewWriter(cfg.Proposals.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact writer: %w", err)
	}

	scrubber, err := secrets.New(&cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret scrubber: %w", err)
	}

	svcCfg := cfg.ServiceConfig()
	svcCfg.Scrubber = scrubAdapter{scrubber}

	svc, err := escalation.NewService(svcCfg, store, writer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create escalation service: %w", err)
	}

	return &app{cfg: cfg, logger: logger, tel: tel, svc: svc}, nil
}

func (a *app) close() {
	_ = a.svc.Close()
	_ = a.tel.Shutdown(context.Background())
	_ = a.logger.Sync()
}

// scrubAdapter narrows the secrets scrubber to the escalation interface.
type scrubAdapter struct {
	s *secrets.Scrubber
}

func (a scrubAdapter) Scrub(content string) string {
	clean, _ := a.s.Scrub(content)
	return clean
}
