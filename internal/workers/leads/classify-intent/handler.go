package classifyintent

import (
	"context"
	"encoding/json"
	"fmt"

	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/intent"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "classify-intent"

	errCodeBlankInput = "INTENT_BLANK_INPUT"
)

type Handler struct {
	config     *Config
	classifier *intent.Classifier
	logger     logger.Logger
}

func NewHandler(config *Config, classifier *intent.Classifier, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		classifier: classifier,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	// blank text is skipped by callers; a process sending it is misconfigured
	if intent.IsBlank(input.Text) {
		h.failJob(client, job, errCodeBlankInput, "text is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output := h.Execute(&input)
	h.completeJob(ctx, client, job, output)
}

// Execute classifies the text. It never fails.
func (h *Handler) Execute(input *Input) *Output {
	s := h.classifier.Classify(input.Text)

	matched := false
	for _, n := range s.Scores {
		if n > 0 {
			matched = true
			break
		}
	}
	h.logger.Debug("text classified", map[string]interface{}{
		"leadId":   input.LeadID,
		"category": s.Category,
		"matched":  matched,
	})

	return &Output{
		Category:    s.Category,
		Title:       s.Title,
		Rationale:   s.Rationale,
		ActionLabel: s.Action.Label,
		ActionRoute: s.Action.Route,
		ActionURL:   s.Action.URL,
		Navigable:   s.Navigable(),
		Matched:     matched,
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err})
	}
}
