// internal/workers/communication/send-notification/models.go
package sendnotification

type Input struct {
	// LeadID restricts the batch to one lead's mail. Empty drains the queue.
	LeadID string `json:"leadId,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type Output struct {
	Sent     int      `json:"sent"`
	Failed   int      `json:"failed"`
	Disabled bool     `json:"disabled"`
	SMSSent  bool     `json:"smsSent"`
	IDs      []string `json:"ids,omitempty"`
}
