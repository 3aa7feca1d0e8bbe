package backoffice

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/zoho"
	"broker-backoffice/internal/models"
)

// CRMSource pages through leads of the external CRM. Satisfied by
// zoho.CRMClient.
type CRMSource interface {
	ListLeads(ctx context.Context, since time.Time, page, perPage int) (*zoho.Page, error)
}

// SyncSummary counts what a CRM sync changed.
type SyncSummary struct {
	Fetched  int       `json:"fetched"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Pages    int       `json:"pages"`
	SyncedAt time.Time `json:"syncedAt"`
}

const (
	crmPageSize = 200
	crmMaxPages = 50
)

// HasCRM reports whether an external CRM is configured.
func (s *Services) HasCRM() bool {
	return s.crm != nil
}

// SyncExternal imports CRM leads modified after since as external_sync
// leads, deduplicated by CRM id. Records without an id are skipped.
func (s *Services) SyncExternal(ctx context.Context, since time.Time) (*SyncSummary, error) {
	if s.crm == nil {
		return nil, apperrors.NewCRMSyncFailedError(errCRMNotConfigured)
	}

	summary := &SyncSummary{}
	for page := 1; page <= crmMaxPages; page++ {
		res, err := s.crm.ListLeads(ctx, since, page, crmPageSize)
		if err != nil {
			return summary, apperrors.NewCRMSyncFailedError(err)
		}
		summary.Pages++
		summary.Fetched += len(res.Leads)

		for _, rec := range res.Leads {
			if rec.ID == "" {
				summary.Skipped++
				continue
			}
			lead, isNew, err := s.Leads.UpsertExternal(ctx, LeadFromCRM(rec))
			if err != nil {
				return summary, apperrors.NewCRMSyncFailedError(err)
			}
			s.Board.Upsert(lead)
			if isNew {
				summary.Created++
			} else {
				summary.Updated++
			}
		}

		if !res.MoreRecords {
			break
		}
	}

	summary.SyncedAt = s.now().UTC()
	s.logger.Info("crm sync finished", map[string]interface{}{
		"fetched": summary.Fetched,
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	})
	return summary, nil
}

var errCRMNotConfigured = errors.New("crm integration not configured")

// LeadFromCRM maps a Zoho lead onto the board model. The product is
// guessed from the free text with the form mapping.
func LeadFromCRM(rec zoho.Lead) models.Lead {
	lead := models.Lead{
		Name:         rec.DisplayName(),
		ContactEmail: rec.Email,
		ContactPhone: rec.Phone,
		Message:      rec.Description,
		Origin:       models.OriginExternalSync,
		ExternalID:   rec.ID,
		Product:      models.ProductGeneral,
		Status:       models.StatusNew,
	}
	text := strings.ToLower(rec.LeadSource + " " + rec.Description)
	for _, key := range []string{"consorcio", "saude", "frota", "auto", "vida"} {
		if strings.Contains(text, key) {
			lead.Product = models.ProductFromForm(key)
			lead.ProductDetail = models.FormProductLabels[key]
			break
		}
	}
	if created, err := time.Parse(time.RFC3339, rec.CreatedTime); err == nil {
		lead.CreatedAt = created
	}
	return lead
}
