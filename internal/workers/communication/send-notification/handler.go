// internal/workers/communication/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/notify"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-notification"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	queue     notify.Queue
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
	errors    *apperrors.ErrorHandler
}

// NewHandler wires the queue to SES and SNS. A nil client disables its
// channel.
func NewHandler(config *Config, queue notify.Queue, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		queue:     queue,
		logger:    log,
		sesClient: sesClient,
		snsClient: snsClient,
		errors:    apperrors.NewErrorHandler(log),
	}
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

	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.fail(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
			return
		}
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

// Execute drains a batch of pending mail. A record that SES rejects is
// marked failed and the batch continues; only a queue read error fails the
// job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !h.config.EmailEnabled || h.sesClient == nil {
		return &Output{Disabled: true}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.BatchSize
	}
	pending, err := h.queue.Pending(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	for _, rec := range pending {
		if input.LeadID != "" && rec.LeadID != input.LeadID {
			continue
		}
		if err := h.sendEmail(ctx, rec.Recipient, rec.Subject, rec.Body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":     err,
				"id":        rec.ID,
				"recipient": rec.Recipient,
			})
			out.Failed++
			if markErr := h.queue.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				h.logger.Warn("failed to mark email failed", map[string]interface{}{"id": rec.ID, "error": markErr})
			}
			continue
		}
		if err := h.queue.MarkSent(ctx, rec.ID); err != nil {
			h.logger.Warn("failed to mark email sent", map[string]interface{}{"id": rec.ID, "error": err})
		}
		out.Sent++
		out.IDs = append(out.IDs, rec.ID)

		if rec.Kind == models.EmailNewLead && h.smsAlerts() {
			if err := h.sendSMS(ctx, h.config.AlertPhone, rec.Subject); err != nil {
				h.logger.Warn("SMS alert failed", map[string]interface{}{"error": err, "leadId": rec.LeadID})
			} else {
				out.SMSSent = true
			}
		}
	}

	h.logger.Info("notification batch sent", map[string]interface{}{"sent": out.Sent, "failed": out.Failed})
	return out, nil
}

func (h *Handler) smsAlerts() bool {
	return h.config.SMSEnabled && h.snsClient != nil && h.config.AlertPhone != ""
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("email", err)
	}
	return nil
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if h.config.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(h.config.SMSSenderID)},
		}
	}
	if _, err := h.snsClient.Publish(ctx, input); err != nil {
		return apperrors.NewNotificationSendFailedError("sms", err)
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
