package classifyintent

import "broker-backoffice/internal/models"

type Input struct {
	Text   string `json:"text"`
	LeadID string `json:"leadId,omitempty"`
}

type Output struct {
	Category    models.ProductCategory `json:"category"`
	Title       string                 `json:"title"`
	Rationale   string                 `json:"rationale"`
	ActionLabel string                 `json:"actionLabel"`
	ActionRoute string                 `json:"actionRoute,omitempty"`
	ActionURL   string                 `json:"actionUrl,omitempty"`
	Navigable   bool                   `json:"navigable"`
	Matched     bool                   `json:"matched"` // false when no keyword hit and the fallback was used
}
