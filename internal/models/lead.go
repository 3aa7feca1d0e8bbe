// internal/models/lead.go
package models

import (
	"sort"
	"strings"
	"time"
)

// LeadStatus is the pipeline lane a lead sits in.
type LeadStatus string

const (
	StatusNew        LeadStatus = "new"
	StatusInAnalysis LeadStatus = "in_analysis"
	StatusQuoted     LeadStatus = "quoted"
	StatusClosed     LeadStatus = "closed"
)

// Lanes lists the board lanes in display order.
var Lanes = []LeadStatus{StatusNew, StatusInAnalysis, StatusQuoted, StatusClosed}

var laneLabels = map[LeadStatus]string{
	StatusNew:        "Novo",
	StatusInAnalysis: "Em Análise",
	StatusQuoted:     "Cotação",
	StatusClosed:     "Fechado",
}

// Label returns the lane title shown on the board.
func (s LeadStatus) Label() string {
	return laneLabels[s]
}

func (s LeadStatus) Valid() bool {
	_, ok := laneLabels[s]
	return ok
}

// ParseLeadStatus accepts both lane ids and their display labels.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	trimmed := strings.TrimSpace(raw)
	if s := LeadStatus(strings.ToLower(trimmed)); s.Valid() {
		return s, true
	}
	for status, label := range laneLabels {
		if strings.EqualFold(label, trimmed) {
			return status, true
		}
	}
	return "", false
}

// ProductCategory is the product line a lead is interested in.
type ProductCategory string

const (
	ProductLegacy    ProductCategory = "legacy"    // life insurance
	ProductMobility  ProductCategory = "mobility"  // auto, moto and fleet
	ProductHuman     ProductCategory = "human"     // health plans
	ProductExpansion ProductCategory = "expansion" // consortium
	ProductGeneral   ProductCategory = "general"
)

func (p ProductCategory) Valid() bool {
	switch p {
	case ProductLegacy, ProductMobility, ProductHuman, ProductExpansion, ProductGeneral:
		return true
	}
	return false
}

// ProductFromForm maps the contact form's product selector to a category.
func ProductFromForm(value string) ProductCategory {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "vida":
		return ProductLegacy
	case "auto", "frota":
		return ProductMobility
	case "saude":
		return ProductHuman
	case "consorcio":
		return ProductExpansion
	default:
		return ProductGeneral
	}
}

// FormProductLabels are the human labels offered by the contact form.
var FormProductLabels = map[string]string{
	"vida":      "Legado (Seguro Vida)",
	"auto":      "Mobilidade (Auto/Moto)",
	"frota":     "Mobilidade Empresarial (Frota)",
	"saude":     "Escudo Capital Humano (Saúde)",
	"consorcio": "Aquisição Estratégica (Consórcio)",
	"outros":    "Outros",
}

// LeadOrigin records how a lead entered the system.
type LeadOrigin string

const (
	OriginSiteForm     LeadOrigin = "site_form"
	OriginManual       LeadOrigin = "manual"
	OriginExternalSync LeadOrigin = "external_sync"
)

// EstimatedValuePending is shown until a value has been estimated.
const EstimatedValuePending = "A calcular"

// Proposal is the single commercial proposal attached to a lead.
type Proposal struct {
	Value   string `json:"value"`
	FileURL string `json:"fileUrl,omitempty"`
	Date    string `json:"date"` // YYYY-MM-DD
}

type Lead struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Product        ProductCategory `json:"product"`
	ProductDetail  string          `json:"productDetail,omitempty"`
	EstimatedValue string          `json:"estimatedValue"`
	Status         LeadStatus      `json:"status"`
	ContactEmail   string          `json:"contactEmail,omitempty"`
	ContactPhone   string          `json:"contactPhone,omitempty"`
	Message        string          `json:"message,omitempty"`
	Origin         LeadOrigin      `json:"origin"`
	Proposal       *Proposal       `json:"proposal,omitempty"`
	Attachments    []string        `json:"attachments,omitempty"`
	PageURL        string          `json:"pageUrl,omitempty"`
	ContentName    string          `json:"contentName,omitempty"`
	ExternalID     string          `json:"externalId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so board state never aliases store state.
func (l Lead) Clone() Lead {
	out := l
	if l.Proposal != nil {
		p := *l.Proposal
		out.Proposal = &p
	}
	if l.Attachments != nil {
		out.Attachments = append([]string(nil), l.Attachments...)
	}
	return out
}

// NormalizeLead coerces a record read from a store into a valid lead.
func NormalizeLead(l Lead) Lead {
	l.Name = strings.TrimSpace(l.Name)
	if s, ok := ParseLeadStatus(string(l.Status)); ok {
		l.Status = s
	} else {
		l.Status = StatusNew
	}
	if !l.Product.Valid() {
		l.Product = ProductGeneral
	}
	if strings.TrimSpace(l.EstimatedValue) == "" {
		l.EstimatedValue = EstimatedValuePending
	}
	if l.Origin == "" {
		l.Origin = OriginManual
	}
	if l.Proposal != nil && strings.TrimSpace(l.Proposal.Value) == "" {
		l.Proposal = nil
	}
	return l
}

// LeadUpdate is a partial update. Nil fields are left untouched.
type LeadUpdate struct {
	Status         *LeadStatus `json:"status,omitempty"`
	EstimatedValue *string     `json:"estimatedValue,omitempty"`
	Proposal       *Proposal   `json:"proposal,omitempty"`
}

func (u LeadUpdate) Empty() bool {
	return u.Status == nil && u.EstimatedValue == nil && u.Proposal == nil
}

// Apply writes the update onto l.
func (u LeadUpdate) Apply(l *Lead) {
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.EstimatedValue != nil {
		l.EstimatedValue = *u.EstimatedValue
	}
	if u.Proposal != nil {
		p := *u.Proposal
		l.Proposal = &p
	}
}

// SortByCreatedDesc orders leads newest first. Equal timestamps keep their
// relative order.
func SortByCreatedDesc(leads []Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
}
