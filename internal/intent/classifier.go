// Package intent turns free text typed by a visitor into a product
// suggestion with a call to action.
package intent

import (
	"strings"
	"unicode"

	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Options struct {
	// AccentFolding strips diacritics before matching so "saúde" hits "saude".
	AccentFolding bool
	// Inactive lists categories that are still placeholders.
	Inactive []models.ProductCategory
}

// Classifier scores text against an ordered rule table. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	rules    []models.IntentRule
	priority map[models.ProductCategory]int
	fold     bool
}

// NewClassifier builds a classifier over rules. A nil rules slice uses
// DefaultRules.
func NewClassifier(rules []models.IntentRule, opts Options) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}

	inactive := make(map[models.ProductCategory]bool, len(opts.Inactive))
	for _, c := range opts.Inactive {
		inactive[c] = true
	}

	ordered := make([]models.IntentRule, len(rules))
	for i, r := range rules {
		r.Keywords = normalizeKeywords(r.Keywords)
		if inactive[r.Category] {
			r.Active = false
		}
		ordered[i] = r
	}

	priority := make(map[models.ProductCategory]int, len(FallbackOrder))
	for i, c := range FallbackOrder {
		priority[c] = i
	}
	// categories missing from FallbackOrder rank after it, in table order
	for i, r := range ordered {
		if _, ok := priority[r.Category]; !ok {
			priority[r.Category] = len(FallbackOrder) + i
		}
	}

	return &Classifier{rules: ordered, priority: priority, fold: opts.AccentFolding}
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(foldAccents(k)))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

var accentStripper = runes.Remove(runes.In(unicode.Mn))

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, accentStripper, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize prepares text for matching.
func (c *Classifier) Normalize(text string) string {
	text = strings.ToLower(text)
	if c.fold {
		text = foldAccents(text)
	}
	return text
}

// Score counts, per category, how many keywords occur in text.
func (c *Classifier) Score(text string) map[models.ProductCategory]int {
	normalized := c.Normalize(text)
	scores := make(map[models.ProductCategory]int, len(c.rules))
	for _, r := range c.rules {
		n := 0
		for _, k := range r.Keywords {
			if strings.Contains(normalized, k) {
				n++
			}
		}
		scores[r.Category] = n
	}
	return scores
}

// Classify returns the suggestion for text. It is total: blank or
// unmatched input yields the first category of the fallback order.
func (c *Classifier) Classify(text string) models.Suggestion {
	scores := c.Score(text)

	best := -1
	for i, r := range c.rules {
		if best < 0 {
			best = i
			continue
		}
		cur, top := scores[r.Category], scores[c.rules[best].Category]
		if cur > top || (cur == top && c.priority[r.Category] < c.priority[c.rules[best].Category]) {
			best = i
		}
	}
	if best < 0 {
		return models.Suggestion{Category: models.ProductGeneral, Scores: scores}
	}

	rule := c.rules[best]
	matched := scores[rule.Category] > 0
	metrics.IntentClassifications.WithLabelValues(string(rule.Category), boolLabel(matched)).Inc()

	return models.Suggestion{
		Category:  rule.Category,
		Title:     rule.Title,
		Rationale: rule.Rationale,
		Action:    rule.Action,
		Active:    rule.Active,
		Scores:    scores,
	}
}

// Rules returns a copy of the normalized rule table.
func (c *Classifier) Rules() []models.IntentRule {
	out := make([]models.IntentRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// IsBlank reports whether text carries nothing to classify. Callers skip
// analysis for blank input.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
