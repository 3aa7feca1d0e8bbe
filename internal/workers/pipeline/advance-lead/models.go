package advancelead

import (
	"context"

	"broker-backoffice/internal/models"
	"broker-backoffice/internal/pipeline"
)

type Input struct {
	LeadID       string `json:"leadId"`
	TargetStatus string `json:"targetStatus"` // lane id or its Portuguese label
	// ProposalValue confirms the proposal step when moving to quoted.
	ProposalValue   string `json:"proposalValue,omitempty"`
	ProposalFileURL string `json:"proposalFileUrl,omitempty"`
}

type Output struct {
	LeadID         string            `json:"leadId"`
	Status         models.LeadStatus `json:"status"`
	Moved          bool              `json:"moved"`
	EstimatedValue string            `json:"estimatedValue"`
	ProposalDate   string            `json:"proposalDate,omitempty"`
}

// Board is the subset of the pipeline board the worker drives.
type Board interface {
	MoveLead(ctx context.Context, id string, target models.LeadStatus) (pipeline.MoveResult, error)
	AttachProposal(ctx context.Context, id, value, fileURL string) (models.Lead, error)
	CancelProposal(id string) bool
}
