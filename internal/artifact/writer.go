// Package artifact writes generated remediation proposals to disk.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

// Document file names within a change directory.
const (
	ProposalFile     = "proposal.md"
	TasksFile        = "tasks.md"
	RequirementsFile = "requirements.md"
)

// Writer persists proposal documents under <baseDir>/<changeID>/.
// Each file is written atomically (temp + rename). A crash between files can
// leave a partial change directory; every document is re-derivable from the
// registry, so that is tolerated rather than guarded.
type Writer struct {
	baseDir string
	logger  *zap.Logger
}

// NewWriter creates a writer rooted at baseDir, creating it if missing.
func NewWriter(baseDir string, logger *zap.Logger) (*Writer, error) {
	if baseDir == "" {
		return nil, errors.New("artifact base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Writer{baseDir: baseDir, logger: logger}, nil
}

// WriteProposal writes the three documents for changeID and returns the
// change directory path. An existing directory for the same changeID is
// reused, not duplicated.
func (w *Writer) WriteProposal(_ context.Context, changeID string, docs escalation.ProposalDocs) (string, error) {
	if changeID == "" || strings.ContainsAny(changeID, "/\\") {
		return "", fmt.Errorf("invalid change id %q", changeID)
	}

	dir := filepath.Join(w.baseDir, changeID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create change directory: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ProposalFile, docs.Proposal},
		{TasksFile, docs.Tasks},
		{RequirementsFile, docs.Requirements},
	}

	for _, f := range files {
		if err := writeAtomic(filepath.Join(dir, f.name), f.content); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	w.logger.Info("wrote proposal artifact",
		zap.String("change_id", changeID),
		zap.String("dir", dir))

	return dir, nil
}

func writeAtomic(path, content string) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
