// Package notify queues outbound e-mail for the send-notification worker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"broker-backoffice/internal/models"
)

var ErrRecordNotFound = errors.New("email record not found")

// Queue is the outbound mail queue.
type Queue interface {
	Enqueue(ctx context.Context, rec models.EmailRecord) (models.EmailRecord, error)
	Get(ctx context.Context, id string) (models.EmailRecord, error)
	// Pending returns up to limit pending records, oldest first.
	Pending(ctx context.Context, limit int) ([]models.EmailRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// NewLeadEmail is the broker alert for a freshly captured lead.
func NewLeadEmail(lead models.Lead, brokerEmail string) models.EmailRecord {
	var b strings.Builder
	fmt.Fprintf(&b, "Novo lead recebido pelo site.\n\n")
	fmt.Fprintf(&b, "Nome: %s\n", lead.Name)
	fmt.Fprintf(&b, "E-mail: %s\n", lead.ContactEmail)
	if lead.ContactPhone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", lead.ContactPhone)
	}
	fmt.Fprintf(&b, "Produto: %s\n", productLine(lead))
	if lead.Message != "" {
		fmt.Fprintf(&b, "\nMensagem:\n%s\n", lead.Message)
	}
	if n := len(lead.Attachments); n > 0 {
		fmt.Fprintf(&b, "\nAnexos (%d):\n", n)
		for _, a := range lead.Attachments {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	return models.EmailRecord{
		Recipient: brokerEmail,
		Subject:   fmt.Sprintf("Novo lead: %s (%s)", lead.Name, productLine(lead)),
		Body:      b.String(),
		Kind:      models.EmailNewLead,
		LeadID:    lead.ID,
		Status:    models.EmailPending,
	}
}

// ConfirmationEmail acknowledges the visitor's request.
func ConfirmationEmail(lead models.Lead) models.EmailRecord {
	body := fmt.Sprintf("Olá, %s.\n\nRecebemos sua solicitação sobre %s. "+
		"Um especialista entrará em contato em breve.\n\nConseg Seguros",
		firstName(lead.Name), productLine(lead))

	return models.EmailRecord{
		Recipient: lead.ContactEmail,
		Subject:   "Recebemos sua solicitação",
		Body:      body,
		Kind:      models.EmailLeadConfirmation,
		LeadID:    lead.ID,
		Status:    models.EmailPending,
	}
}

func productLine(lead models.Lead) string {
	if lead.ProductDetail != "" {
		return lead.ProductDetail
	}
	return string(lead.Product)
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
