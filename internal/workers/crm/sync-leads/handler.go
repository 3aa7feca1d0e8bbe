package syncleads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "sync-leads"

type Handler struct {
	config *Config
	logger logger.Logger
	syncer Syncer
	now    func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Syncer       Syncer
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for sync-leads: %w", err)
	}
	if opts.Syncer == nil {
		return nil, fmt.Errorf("sync-leads requires a syncer")
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config: workerConfig,
		logger: loggerInstance,
		syncer: opts.Syncer,
		now:    time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing CRM lead sync", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", map[string]interface{}{
			"worker": TaskType,
		})
		h.completeJob(ctx, client, job, &Output{
			Success: false,
			Message: "CRM lead sync disabled",
		})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("validation errors: %v", validation.GetErrorMessages(result)))
	}

	input := &Input{}
	if raw, ok := variables["since"].(string); ok && strings.TrimSpace(raw) != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("since must be RFC3339: %v", err))
		}
		input.Since = since
	}
	return input, nil
}

// Execute runs one sync. A zero Since falls back to the configured
// lookback window.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	since := input.Since
	if since.IsZero() && h.config.Lookback > 0 {
		since = h.now().Add(-h.config.Lookback)
	}

	summary, err := h.syncer.SyncExternal(ctx, since)
	if err != nil {
		return nil, err
	}

	return &Output{
		Success: true,
		Message: fmt.Sprintf("%d leads fetched, %d created, %d updated", summary.Fetched, summary.Created, summary.Updated),
		Summary: summary,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	variables := map[string]interface{}{
		"crmSyncSuccess": output.Success,
		"crmMessage":     output.Message,
	}

	if output.Summary != nil {
		variables["crmFetched"] = output.Summary.Fetched
		variables["crmCreated"] = output.Summary.Created
		variables["crmUpdated"] = output.Summary.Updated
		variables["crmSkipped"] = output.Summary.Skipped
		variables["crmSyncedAt"] = output.Summary.SyncedAt.Format(time.RFC3339)
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	if _, err = request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}
	h.logger.Info("Successfully completed CRM lead sync", map[string]interface{}{
		"jobKey":  job.GetKey(),
		"success": output.Success,
		"worker":  TaskType,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	bpmnErr := errors.ConvertToBPMNError(errors.Normalize(err))

	h.logger.Error("CRM lead sync job failed", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"retryable":    bpmnErr.Retryable,
		"retries":      bpmnErr.Retries,
		"worker":       TaskType,
	})

	failCmd := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(int32(bpmnErr.Retries)).
		ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

	var finalCmd interface {
		Send(context.Context) (*pb.FailJobResponse, error)
	}
	finalCmd = failCmd
	if len(bpmnErr.ErrorVariables) > 0 {
		varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables())
		if varErr != nil {
			h.logger.Error("Failed to set error variables, sending without them", map[string]interface{}{
				"jobKey": job.GetKey(),
				"error":  varErr.Error(),
				"worker": TaskType,
			})
		} else {
			finalCmd = varCmd
		}
	}

	if _, sendErr := finalCmd.Send(ctx); sendErr != nil {
		h.logger.Error("Failed to send fail job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  sendErr.Error(),
			"worker": TaskType,
		})
	}
}
