package advancelead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "advance-lead"

type Handler struct {
	config *Config
	board  Board
	logger logger.Logger
	errors *errors.ErrorHandler
}

func NewHandler(config *Config, board Board, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{config: config, board: board, logger: log, errors: errors.NewErrorHandler(log)}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute moves the lead. Moving to quoted needs ProposalValue; without it
// the proposal step stays unconfirmed and PROPOSAL_REQUIRED is returned so
// the process can route to a user task.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !h.config.Enabled {
		return nil, errors.NewBusinessRuleError("worker disabled", TaskType)
	}
	if strings.TrimSpace(input.LeadID) == "" {
		return nil, errors.NewInvalidInputError("leadId is required")
	}
	target, ok := models.ParseLeadStatus(input.TargetStatus)
	if !ok {
		return nil, errors.NewInvalidLeadStatusError(input.TargetStatus)
	}

	if target == models.StatusQuoted {
		return h.quote(ctx, input)
	}

	res, err := h.board.MoveLead(ctx, input.LeadID, target)
	if err != nil {
		return nil, err
	}
	return &Output{
		LeadID:         res.Lead.ID,
		Status:         res.Lead.Status,
		Moved:          res.Moved,
		EstimatedValue: res.Lead.EstimatedValue,
	}, nil
}

func (h *Handler) quote(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.board.MoveLead(ctx, input.LeadID, models.StatusQuoted)
	if err != nil {
		return nil, err
	}
	if !res.ProposalRequired {
		// already quoted
		return &Output{LeadID: res.Lead.ID, Status: res.Lead.Status, EstimatedValue: res.Lead.EstimatedValue}, nil
	}

	if strings.TrimSpace(input.ProposalValue) == "" {
		h.board.CancelProposal(input.LeadID)
		return nil, errors.NewProposalRequiredError(input.LeadID)
	}

	lead, err := h.board.AttachProposal(ctx, input.LeadID, input.ProposalValue, input.ProposalFileURL)
	if err != nil {
		h.board.CancelProposal(input.LeadID)
		return nil, err
	}

	out := &Output{LeadID: lead.ID, Status: lead.Status, Moved: true, EstimatedValue: lead.EstimatedValue}
	if lead.Proposal != nil {
		out.ProposalDate = lead.Proposal.Date
	}
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
