package searchleads

import (
	"context"

	"broker-backoffice/internal/models"
)

type Input struct {
	Query string `json:"query"`
	Size  int    `json:"size,omitempty"`
}

type Output struct {
	Leads     []models.Lead `json:"leads"`
	TotalHits int           `json:"totalHits"`
}

// Searcher finds leads by free text. Blank text matches every lead.
type Searcher interface {
	SearchLeads(ctx context.Context, term string, size int) ([]models.Lead, error)
}
