package backoffice

import (
	"context"
	"fmt"
	"strings"

	"broker-backoffice/internal/attachments"
	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/common/validation"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/notify"
)

// InvalidEmailMessage is shown next to the e-mail field.
const InvalidEmailMessage = "Por favor, insira um e-mail válido."

// ContactForm is a submission of the public contact form.
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Product string // form value: vida, auto, frota, saude, consorcio
	Message string
	PageURL string
	Files   []attachments.File
}

// ContactResult reports what a submission produced.
type ContactResult struct {
	Lead          models.Lead            `json:"lead"`
	Uploaded      []attachments.Uploaded `json:"uploaded,omitempty"`
	Skipped       []string               `json:"skipped,omitempty"`
	Notifications []string               `json:"notifications,omitempty"`
	WorkflowKey   int64                  `json:"workflowKey,omitempty"`
}

// ContactSchema bounds the text fields of the form.
func ContactSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"nome":     {Type: "string", MaxLength: validation.Int(200)},
			"email":    {Type: "string", Pattern: validation.EmailPattern, MaxLength: validation.Int(254)},
			"telefone": {Type: "string", MaxLength: validation.Int(40)},
			"produto":  {Type: "string", MaxLength: validation.Int(40)},
			"mensagem": {Type: "string", MaxLength: validation.Int(5000)},
		},
		Required: []string{"email"},
	}
}

// Validate checks the form. A malformed e-mail yields InvalidEmailMessage.
func (f ContactForm) Validate() error {
	input := map[string]interface{}{
		"nome":     f.Name,
		"email":    strings.TrimSpace(f.Email),
		"telefone": f.Phone,
		"produto":  f.Product,
		"mensagem": f.Message,
	}
	result := validation.ValidateInput(input, ContactSchema())
	if result.Valid {
		return nil
	}
	if result.HasFieldError("email") {
		return apperrors.NewContactValidationError(InvalidEmailMessage, "email")
	}
	return apperrors.NewContactValidationError("Verifique os dados do formulário.",
		strings.Join(validation.GetErrorMessages(result), "; "))
}

// Lead builds the lead the form describes, before attachments.
func (f ContactForm) Lead(contentName string) models.Lead {
	product := strings.TrimSpace(f.Product)
	return models.Lead{
		Name:          strings.TrimSpace(f.Name),
		Product:       models.ProductFromForm(product),
		ProductDetail: models.FormProductLabels[strings.ToLower(product)],
		Status:        models.StatusNew,
		ContactEmail:  strings.TrimSpace(f.Email),
		ContactPhone:  strings.TrimSpace(f.Phone),
		Message:       strings.TrimSpace(f.Message),
		Origin:        models.OriginSiteForm,
		PageURL:       f.PageURL,
		ContentName:   contentName,
	}
}

// SubmitContactForm validates the form, uploads its attachments, creates
// the lead and queues the broker alert and the visitor confirmation.
// Queue and workflow failures are logged and do not fail the submission.
func (s *Services) SubmitContactForm(ctx context.Context, form ContactForm) (*ContactResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	owner := fmt.Sprintf("guest_%d", s.now().UnixMilli())
	uploaded, skipped, err := attachments.UploadAll(ctx, s.Attachments, owner, form.Files, s.logger)
	if err != nil {
		return nil, err
	}

	lead := form.Lead(s.cfg.Contact.ContentName)
	for _, u := range uploaded {
		lead.Attachments = append(lead.Attachments, u.URL)
	}

	result, err := s.CaptureLead(ctx, lead)
	if err != nil {
		return nil, err
	}
	result.Uploaded = uploaded
	result.Skipped = skipped
	return result, nil
}

// CaptureLead stores a new lead and runs the intake side effects.
func (s *Services) CaptureLead(ctx context.Context, lead models.Lead) (*ContactResult, error) {
	lead = models.NormalizeLead(lead)
	lead.Status = models.StatusNew

	created, err := s.Leads.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.Board.Upsert(created)
	metrics.LeadsCaptured.WithLabelValues(string(created.Origin), string(created.Product)).Inc()

	s.logger.Info("lead captured", map[string]interface{}{
		"leadId":      created.ID,
		"product":     created.Product,
		"origin":      created.Origin,
		"attachments": len(created.Attachments),
	})

	result := &ContactResult{Lead: created}
	result.Notifications = s.queueIntakeEmails(ctx, created)

	if s.workflow != nil {
		key, err := s.workflow.StartProcess(ctx, s.cfg.Camunda.LeadProcessID, map[string]interface{}{
			"leadId":  created.ID,
			"product": string(created.Product),
			"origin":  string(created.Origin),
		})
		if err != nil {
			s.logger.Error("lead workflow start failed", map[string]interface{}{
				"leadId": created.ID,
				"error":  apperrors.NewWorkflowStartFailedError(s.cfg.Camunda.LeadProcessID, err).Error(),
			})
		} else {
			result.WorkflowKey = key
		}
	}
	return result, nil
}

func (s *Services) queueIntakeEmails(ctx context.Context, lead models.Lead) []string {
	if !s.cfg.Notifications.Email.Enabled {
		return nil
	}

	records := []models.EmailRecord{notify.NewLeadEmail(lead, s.cfg.Notifications.Email.BrokerEmail)}
	if lead.ContactEmail != "" {
		records = append(records, notify.ConfirmationEmail(lead))
	}

	var ids []string
	for _, rec := range records {
		if rec.Recipient == "" {
			continue
		}
		queued, err := s.Queue.Enqueue(ctx, rec)
		if err != nil {
			s.logger.Error("failed to queue e-mail", map[string]interface{}{
				"leadId": lead.ID,
				"kind":   rec.Kind,
				"error":  err.Error(),
			})
			continue
		}
		metrics.NotificationsQueued.WithLabelValues(string(rec.Kind)).Inc()
		ids = append(ids, queued.ID)
	}
	return ids
}
