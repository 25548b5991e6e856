package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

func testDocs() escalation.ProposalDocs {
	return escalation.ProposalDocs{
		Proposal:     "# Remediation Proposal: auto-test\n",
		Tasks:        "# Tasks: auto-test\n",
		Requirements: "# Requirements: auto-test\n",
	}
}

func TestNewWriter(t *testing.T) {
	t.Run("creates base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "proposals")
		_, err := NewWriter(base, zap.NewNop())
		require.NoError(t, err)
		assert.DirExists(t, base)
	})

	t.Run("rejects empty base directory", func(t *testing.T) {
		_, err := NewWriter("", zap.NewNop())
		require.Error(t, err)
	})
}

func TestWriter_WriteProposal(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	w, err := NewWriter(base, zap.NewNop())
	require.NoError(t, err)

	dir, err := w.WriteProposal(ctx, "auto-database-timeout", testDocs())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "auto-database-timeout"), dir)

	for name, want := range map[string]string{
		ProposalFile:     "# Remediation Proposal: auto-test\n",
		TasksFile:        "# Tasks: auto-test\n",
		RequirementsFile: "# Requirements: auto-test\n",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestWriter_WriteProposal_Overwrite(t *testing.T) {
	ctx := context.Background()
	w, err := NewWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	first, err := w.WriteProposal(ctx, "auto-x", testDocs())
	require.NoError(t, err)

	docs := testDocs()
	docs.Proposal = "updated\n"
	second, err := w.WriteProposal(ctx, "auto-x", docs)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same change id reuses the directory")

	data, err := os.ReadFile(filepath.Join(second, ProposalFile))
	require.NoError(t, err)
	assert.Equal(t, "updated\n", string(data))
}

func TestWriter_WriteProposal_InvalidChangeID(t *testing.T) {
	ctx := context.Background()
	w, err := NewWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	for _, id := range []string{"", "a/b", `a\b`, "../escape"} {
		_, err := w.WriteProposal(ctx, id, testDocs())
		assert.Error(t, err, id)
	}
}
