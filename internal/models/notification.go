// internal/models/notification.go
package models

import "time"

type EmailKind string

const (
	EmailNewLead          EmailKind = "new_lead"
	EmailLeadConfirmation EmailKind = "lead_confirmation"
)

type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// EmailRecord is one row of the outbound mail queue.
type EmailRecord struct {
	ID        string      `json:"id"`
	Recipient string      `json:"recipient"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	Kind      EmailKind   `json:"kind"`
	LeadID    string      `json:"leadId,omitempty"`
	Status    EmailStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	SentAt    *time.Time  `json:"sentAt,omitempty"`
}
