package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpclient "broker-backoffice/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

// leadFields is the projection requested from the Leads module.
const leadFields = "First_Name,Last_Name,Full_Name,Company,Email,Phone,Description,Lead_Source,Lead_Status,Modified_Time,Created_Time"

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *httpclient.Client
}

// Lead is a record of the Zoho CRM Leads module.
type Lead struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"First_Name,omitempty"`
	LastName     string `json:"Last_Name"`
	FullName     string `json:"Full_Name,omitempty"`
	Company      string `json:"Company,omitempty"`
	Email        string `json:"Email,omitempty"`
	Phone        string `json:"Phone,omitempty"`
	Description  string `json:"Description,omitempty"`
	LeadSource   string `json:"Lead_Source,omitempty"`
	LeadStatus   string `json:"Lead_Status,omitempty"`
	ModifiedTime string `json:"Modified_Time,omitempty"`
	CreatedTime  string `json:"Created_Time,omitempty"`
}

// DisplayName prefers the company for business leads.
func (l Lead) DisplayName() string {
	if l.Company != "" && l.FirstName == "" {
		return l.Company
	}
	if l.FullName != "" {
		return l.FullName
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

type listResponse struct {
	Data []Lead `json:"data"`
	Info struct {
		MoreRecords bool `json:"more_records"`
		Page        int  `json:"page"`
	} `json:"info"`
}

// Page is one page of Leads module records.
type Page struct {
	Leads       []Lead
	MoreRecords bool
}

func NewCRMClient(apiKey, oauthToken string) *CRMClient {
	return NewCRMClientWithBaseURL(apiKey, oauthToken, DefaultBaseURL)
}

func NewCRMClientWithBaseURL(apiKey, oauthToken, baseURL string) *CRMClient {
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpclient.NewClient(30 * time.Second),
	}
}

func (c *CRMClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)
}

// ListLeads returns one page of leads modified after since. A zero since
// lists everything.
func (c *CRMClient) ListLeads(ctx context.Context, since time.Time, page, perPage int) (*Page, error) {
	q := url.Values{}
	q.Set("fields", leadFields)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort_by", "Modified_Time")
	q.Set("sort_order", "asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Leads?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	if !since.IsZero() {
		req.Header.Set("If-Modified-Since", since.UTC().Format(time.RFC3339))
	}

	var result listResponse
	if err := c.httpClient.DoJSON(ctx, req, &result); err != nil {
		// 304 means nothing changed since the watermark
		if statusErr, ok := err.(*httpclient.StatusError); ok && statusErr.StatusCode == http.StatusNotModified {
			return &Page{}, nil
		}
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return &Page{Leads: result.Data, MoreRecords: result.Info.MoreRecords}, nil
}

// CreateLead inserts a lead and returns its CRM id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{"data": []Lead{*lead}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Leads", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var result writeResponse
	if err := c.httpClient.DoJSON(ctx, req, &result); err != nil {
		return "", fmt.Errorf("failed to create lead: %w", err)
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if result.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", result.Data[0].Message)
	}
	return result.Data[0].Details.ID, nil
}

// SearchLeads finds leads by exact e-mail.
func (c *CRMClient) SearchLeads(ctx context.Context, email string) ([]Lead, error) {
	q := url.Values{}
	q.Set("email", email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Leads/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	var result listResponse
	if err := c.httpClient.DoJSON(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}
	return result.Data, nil
}
