package advancelead

import (
	"context"
	"testing"
	"time"

	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func setupHandler(t *testing.T) (*Handler, *pipeline.Board) {
	t.Helper()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	board := pipeline.NewDemoBoard(pipeline.Options{Clock: func() time.Time { return now }})
	t.Cleanup(func() { _ = board.Close(context.Background()) })

	h, err := NewHandler(DefaultConfig(), board, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h, board
}

// ==========================
// Tests
// ==========================

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(&Config{Enabled: true}, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestExecute_MoveByLabel(t *testing.T) {
	h, board := setupHandler(t)

	out, err := h.Execute(context.Background(), &Input{LeadID: "1", TargetStatus: "Fechado"})
	require.NoError(t, err)
	assert.True(t, out.Moved)
	assert.Equal(t, models.StatusClosed, out.Status)

	lead, _ := board.Lead("1")
	assert.Equal(t, models.StatusClosed, lead.Status)
}

func TestExecute_SameLaneIsNoop(t *testing.T) {
	h, _ := setupHandler(t)

	out, err := h.Execute(context.Background(), &Input{LeadID: "1", TargetStatus: "new"})
	require.NoError(t, err)
	assert.False(t, out.Moved)
}

func TestExecute_QuotedWithoutValue(t *testing.T) {
	h, board := setupHandler(t)

	_, err := h.Execute(context.Background(), &Input{LeadID: "1", TargetStatus: "quoted"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeProposalRequired))

	lead, _ := board.Lead("1")
	assert.Equal(t, models.StatusNew, lead.Status)
	_, open := board.PendingProposal("1")
	assert.False(t, open)
}

func TestExecute_QuotedWithValue(t *testing.T) {
	h, board := setupHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		LeadID:          "2",
		TargetStatus:    "quoted",
		ProposalValue:   "R$ 15.000",
		ProposalFileURL: "https://files.example.com/p.pdf",
	})
	require.NoError(t, err)
	assert.True(t, out.Moved)
	assert.Equal(t, "R$ 15.000", out.EstimatedValue)
	assert.Equal(t, "2025-03-10", out.ProposalDate)

	lead, _ := board.Lead("2")
	assert.Equal(t, models.StatusQuoted, lead.Status)
	require.NotNil(t, lead.Proposal)
	assert.Equal(t, "https://files.example.com/p.pdf", lead.Proposal.FileURL)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		code  errors.ErrorCode
	}{
		{"missing lead id", Input{TargetStatus: "closed"}, errors.ErrCodeInvalidInput},
		{"unknown status", Input{LeadID: "1", TargetStatus: "archived"}, errors.ErrCodeInvalidLeadStatus},
		{"unknown lead", Input{LeadID: "99", TargetStatus: "closed"}, errors.ErrCodeLeadNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupHandler(t)
			_, err := h.Execute(context.Background(), &tt.input)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}

func TestExecute_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	h, err := NewHandler(cfg, pipeline.NewDemoBoard(pipeline.Options{}), logger.NewNoOpLogger())
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{LeadID: "1", TargetStatus: "closed"})
	assert.Error(t, err)
}
