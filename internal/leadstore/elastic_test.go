package leadstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type esRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []esRequest
	search   string
	status   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, esRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	status, search := f.status, f.search
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}
	if strings.HasSuffix(r.URL.Path, "/_search") {
		_, _ = w.Write([]byte(search))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"result":"created"}`))
}

func (f *fakeES) recorded() []esRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]esRequest(nil), f.requests...)
}

func setupES(t *testing.T, fake *fakeES) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

// ==========================
// ElasticIndex
// ==========================

func TestElasticIndex_Index(t *testing.T) {
	fake := &fakeES{}
	idx := NewElasticIndex(setupES(t, fake), "")

	require.NoError(t, idx.Index(context.Background(), models.Lead{ID: "a1", Name: "Maria Silva"}))

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/leads/_doc/a1", reqs[0].Path)
	assert.Contains(t, reqs[0].Body, `"name":"Maria Silva"`)
}

func TestElasticIndex_Search(t *testing.T) {
	fake := &fakeES{search: `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"a1","name":"Maria Silva","status":"new","product":"mobility"}}]}}`}
	idx := NewElasticIndex(setupES(t, fake), "leads")

	leads, err := idx.Search(context.Background(), "maria", 500)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Maria Silva", leads[0].Name)
	assert.Equal(t, models.EstimatedValuePending, leads[0].EstimatedValue)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	mm := body["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "maria", mm["query"])
}

func TestElasticIndex_SearchBlankMatchesAll(t *testing.T) {
	fake := &fakeES{search: `{"hits":{"hits":[]}}`}
	idx := NewElasticIndex(setupES(t, fake), "leads")

	leads, err := idx.Search(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.Contains(t, fake.recorded()[0].Body, "match_all")
}

func TestElasticIndex_SearchError(t *testing.T) {
	fake := &fakeES{status: http.StatusInternalServerError}
	idx := NewElasticIndex(setupES(t, fake), "leads")

	_, err := idx.Search(context.Background(), "x", 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}

// ==========================
// Indexed decorator
// ==========================

type stubIndex struct {
	mu      sync.Mutex
	indexed []models.Lead
	err     error
}

func (s *stubIndex) Index(ctx context.Context, lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, lead)
	return s.err
}

func (s *stubIndex) Search(ctx context.Context, term string, size int) ([]models.Lead, error) {
	return nil, nil
}

func TestIndexed_KeepsIndexInStep(t *testing.T) {
	idx := &stubIndex{}
	store := NewIndexed(NewMemoryStore(nil), idx, logger.NewTestLogger(t))
	ctx := context.Background()

	lead, err := store.Create(ctx, models.Lead{Name: "Maria"})
	require.NoError(t, err)

	status := models.StatusClosed
	require.NoError(t, store.UpdateFields(ctx, lead.ID, models.LeadUpdate{Status: &status}))

	require.Len(t, idx.indexed, 2)
	assert.Equal(t, models.StatusNew, idx.indexed[0].Status)
	assert.Equal(t, models.StatusClosed, idx.indexed[1].Status)

	n, err := store.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexed_IndexFailureDoesNotFailWrite(t *testing.T) {
	idx := &stubIndex{err: assert.AnError}
	store := NewIndexed(NewMemoryStore(nil), idx, logger.NewTestLogger(t))

	_, err := store.Create(context.Background(), models.Lead{Name: "Maria"})
	assert.NoError(t, err)
}
