package capturelead

import (
	"context"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/models"
)

// Input mirrors the contact form fields; attachments arrive as already
// uploaded URLs.
type Input struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone,omitempty"`
	Product     string   `json:"product,omitempty"`
	Message     string   `json:"message,omitempty"`
	PageURL     string   `json:"pageUrl,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

type Output struct {
	LeadID        string                 `json:"leadId"`
	Product       models.ProductCategory `json:"product"`
	Status        models.LeadStatus      `json:"status"`
	Notifications int                    `json:"notificationsQueued"`
}

// Capturer creates leads. Satisfied by *backoffice.Services.
type Capturer interface {
	CaptureLead(ctx context.Context, lead models.Lead) (*backoffice.ContactResult, error)
}
