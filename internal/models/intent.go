// internal/models/intent.go
package models

// IntentAction is where a suggestion sends the visitor: an internal route or
// an external URL, never both.
type IntentAction struct {
	Label string `json:"label"`
	Route string `json:"route,omitempty"`
	URL   string `json:"url,omitempty"`
}

type IntentRule struct {
	Category  ProductCategory `json:"category"`
	Keywords  []string        `json:"keywords"`
	Title     string          `json:"title"`
	Rationale string          `json:"rationale"`
	Action    IntentAction    `json:"action"`
	Active    bool            `json:"active"`
}

type Suggestion struct {
	Category  ProductCategory         `json:"category"`
	Title     string                  `json:"title"`
	Rationale string                  `json:"rationale"`
	Action    IntentAction            `json:"action"`
	Active    bool                    `json:"active"`
	Scores    map[ProductCategory]int `json:"scores,omitempty"`
}

// Navigable reports whether the caller may follow the action. Inactive
// categories get an explanation state instead.
func (s Suggestion) Navigable() bool {
	return s.Active && (s.Action.Route != "" || s.Action.URL != "")
}
