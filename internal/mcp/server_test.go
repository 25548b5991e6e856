package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

// stubService implements escalation.Service with canned responses.
type stubService struct {
	closed bool
}

func (s *stubService) Ingest(ctx context.Context, req *escalation.IngestRequest) (*escalation.IngestResult, error) {
	return &escalation.IngestResult{ID: "id-1", IsNovel: true, NovelCount: 1}, nil
}

func (s *stubService) DetectPatterns(ctx context.Context) ([]*escalation.DetectedPattern, error) {
	return nil, nil
}

func (s *stubService) GroupBySimilarity(ctx context.Context, threshold float64) ([]*escalation.SimilarityGroup, error) {
	return nil, nil
}

func (s *stubService) GenerateProposal(ctx context.Context, symptomHash string) (*escalation.ProposalResult, error) {
	return nil, nil
}

func (s *stubService) GenerateAllPendingProposals(ctx context.Context) ([]*escalation.ProposalResult, error) {
	return nil, nil
}

func (s *stubService) Summary(ctx context.Context, topN int) (*escalation.Summary, error) {
	return &escalation.Summary{}, nil
}

func (s *stubService) GroupBySeverity(ctx context.Context) ([]*escalation.SeverityGroup, error) {
	return nil, nil
}

func (s *stubService) Close() error {
	s.closed = true
	return nil
}

func TestNewServer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		svc     escalation.Service
		wantErr bool
	}{
		{
			name: "success with config",
			cfg:  DefaultConfig(),
			svc:  &stubService{},
		},
		{
			name: "nil config uses defaults",
			cfg:  nil,
			svc:  &stubService{},
		},
		{
			name: "empty name gets default",
			cfg:  &Config{Logger: zap.NewNop()},
			svc:  &stubService{},
		},
		{
			name:    "fails without service",
			cfg:     DefaultConfig(),
			svc:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(tt.cfg, tt.svc)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, srv)
			assert.NotNil(t, srv.mcp)
		})
	}
}

func TestServer_Close(t *testing.T) {
	svc := &stubService{}
	srv, err := NewServer(DefaultConfig(), svc)
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	assert.True(t, svc.closed, "closing the server closes the service")
}
