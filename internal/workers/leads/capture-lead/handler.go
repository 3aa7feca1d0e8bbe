package capturelead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "capture-lead"

type Handler struct {
	config   *Config
	capturer Capturer
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewHandler(cfg *Config, capturer Capturer, log logger.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		capturer: capturer,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
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

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		if result.HasFieldError("email") {
			return nil, errors.NewContactValidationError(backoffice.InvalidEmailMessage, "email")
		}
		return nil, errors.NewContactValidationError("invalid lead input", strings.Join(validation.GetErrorMessages(result), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return &input, nil
}

// Execute creates the lead and queues the intake e-mails.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !h.config.Enabled {
		return nil, errors.NewBusinessRuleError("worker disabled", TaskType)
	}

	form := backoffice.ContactForm{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Product: input.Product,
		Message: input.Message,
		PageURL: input.PageURL,
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	lead := form.Lead(h.config.ContentName)
	lead.Attachments = input.Attachments

	res, err := h.capturer.CaptureLead(ctx, lead)
	if err != nil {
		return nil, err
	}

	return &Output{
		LeadID:        res.Lead.ID,
		Product:       res.Lead.Product,
		Status:        res.Lead.Status,
		Notifications: len(res.Notifications),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(errors.Normalize(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
