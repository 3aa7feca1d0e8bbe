package leadstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// LeadIndexMapping is the mapping used when the leads index is created.
const LeadIndexMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"name": {"type": "text"},
			"product": {"type": "keyword"},
			"productDetail": {"type": "text"},
			"status": {"type": "keyword"},
			"contactEmail": {"type": "keyword"},
			"message": {"type": "text"},
			"origin": {"type": "keyword"},
			"createdAt": {"type": "date"}
		}
	}
}`

const maxSearchSize = 100

// ElasticIndex indexes leads in Elasticsearch for the dashboard search box.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	if index == "" {
		index = "leads"
	}
	return &ElasticIndex{client: client, index: index}
}

func (e *ElasticIndex) Index(ctx context.Context, lead models.Lead) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: lead.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index lead %s: %w", lead.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index lead %s: %s", lead.ID, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Lead `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a fuzzy match on name, product detail, e-mail and message.
func (e *ElasticIndex) Search(ctx context.Context, term string, size int) ([]models.Lead, error) {
	term = strings.TrimSpace(term)
	if size < 1 || size > maxSearchSize {
		size = 20
	}

	var query map[string]interface{}
	if term == "" {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     term,
				"fields":    []string{"name^3", "productDetail^2", "contactEmail", "message"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"query": query,
		"sort":  []interface{}{"_score", map[string]interface{}{"createdAt": "desc"}},
	})

	res, err := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}.Do(ctx, e.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewSearchTimeoutError(e.index)
		}
		return nil, apperrors.NewSearchQueryFailedError(e.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(e.index, fmt.Errorf("%s", res.Status()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(e.index, err)
	}

	leads := make([]models.Lead, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		leads = append(leads, models.NormalizeLead(h.Source))
	}
	return leads, nil
}

// Indexed keeps a search index in step with store writes. Index failures
// are logged and never fail the write.
type Indexed struct {
	Store
	index  SearchIndex
	logger logger.Logger
}

func NewIndexed(store Store, index SearchIndex, log logger.Logger) *Indexed {
	return &Indexed{
		Store:  store,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "lead-index"}),
	}
}

func (s *Indexed) reindex(ctx context.Context, id string) {
	lead, err := s.Store.Get(ctx, id)
	if err != nil {
		s.logger.Warn("reindex lookup failed", map[string]interface{}{"leadId": id, "error": err.Error()})
		return
	}
	s.put(ctx, lead)
}

func (s *Indexed) put(ctx context.Context, lead models.Lead) {
	if err := s.index.Index(ctx, lead); err != nil {
		s.logger.Warn("lead indexing failed", map[string]interface{}{"leadId": lead.ID, "error": err.Error()})
	}
}

func (s *Indexed) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	out, err := s.Store.Create(ctx, lead)
	if err == nil {
		s.put(ctx, out)
	}
	return out, err
}

func (s *Indexed) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error {
	err := s.Store.UpdateFields(ctx, id, update)
	if err == nil {
		s.reindex(ctx, id)
	}
	return err
}

func (s *Indexed) UpsertExternal(ctx context.Context, lead models.Lead) (models.Lead, bool, error) {
	out, created, err := s.Store.UpsertExternal(ctx, lead)
	if err == nil {
		s.reindex(ctx, out.ID)
	}
	return out, created, err
}

// Search queries the index.
func (s *Indexed) Search(ctx context.Context, term string, size int) ([]models.Lead, error) {
	return s.index.Search(ctx, term, size)
}

// Reindex pushes every stored lead into the index.
func (s *Indexed) Reindex(ctx context.Context) (int, error) {
	leads, err := s.Store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range leads {
		if err := s.index.Index(ctx, l); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
