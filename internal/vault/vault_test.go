package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ==========================
// Test Helpers
// ==========================

type stubSource struct {
	mu    sync.Mutex
	pages map[string]Page
	err   error
	calls []string
}

func (s *stubSource) List(ctx context.Context, folderID, pageToken string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, folderID+"|"+pageToken)
	if s.err != nil {
		return Page{}, s.err
	}
	return s.pages[folderID+"|"+pageToken], nil
}

func folder(id, name string) models.FileSystemEntry {
	return models.FileSystemEntry{ID: id, Name: name, Kind: models.KindFolder, MimeType: models.FolderMimeType}
}

func doc(id, name, url string) models.FileSystemEntry {
	return models.FileSystemEntry{ID: id, Name: name, Kind: models.KindPDF, MimeType: "application/pdf", ViewURL: url}
}

func names(entries []models.FileSystemEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

// ==========================
// Seed source
// ==========================

func TestSeedSource(t *testing.T) {
	src := NewSeedSource()
	ctx := context.Background()

	root, err := src.List(ctx, models.RootFolderID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Adalberto Souza", "Beatriz Engenharia Ltda", "Carlos & Filhos Transp.", "Daniela M. (Vida)", "Eduardo Vilela",
	}, names(root.Entries))

	files, err := src.List(ctx, "cli_001", "")
	require.NoError(t, err)
	require.Len(t, files.Entries, 3)
	assert.Equal(t, "2.40 MB", files.Entries[0].HumanSize())
	assert.Equal(t, models.KindImage, files.Entries[1].Kind)
	assert.Equal(t, "4.50 MB", files.Entries[2].HumanSize())

	empty, err := src.List(ctx, "cli_004", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}

// ==========================
// Browser
// ==========================

func TestBrowser_SeedNavigation(t *testing.T) {
	b := NewBrowser(nil, "", logger.NewTestLogger(t))
	ctx := context.Background()
	assert.Equal(t, ModeSeed, b.Mode())

	listing, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, listing.Entries, 5)
	assert.Equal(t, []models.Breadcrumb{RootCrumb}, listing.Breadcrumbs)

	opened, err := b.NavigateInto(ctx, "cli_001")
	require.NoError(t, err)
	require.NotNil(t, opened.Listing)
	assert.Equal(t, "cli_001", opened.Listing.FolderID)
	assert.Equal(t, []models.Breadcrumb{RootCrumb, {ID: "cli_001", Name: "Adalberto Souza"}}, opened.Listing.Breadcrumbs)
	assert.Len(t, opened.Listing.Entries, 3)

	opened, err = b.NavigateInto(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, opened.Document)
	assert.Empty(t, opened.URL)
	assert.Equal(t, "Abrindo documento seguro: Apolice_Auto_2025.pdf", opened.Message)

	assert.Equal(t, []string{"CNH_Digital.jpg"}, names(b.Filter("cnh")))
	assert.Len(t, b.Filter(" "), 3)

	listing, err = b.NavigateToBreadcrumb(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RootFolderID, listing.FolderID)
	assert.Len(t, listing.Breadcrumbs, 1)
	assert.Len(t, listing.Entries, 5)
}

func TestBrowser_ListChildrenKeepsTrail(t *testing.T) {
	b := NewBrowser(nil, "", logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	listing, err := b.ListChildren(ctx, "cli_001")
	require.NoError(t, err)
	assert.Equal(t, "cli_001", listing.FolderID)
	assert.Len(t, listing.Entries, 3)
	assert.Empty(t, listing.Breadcrumbs)

	current := b.Current()
	assert.Equal(t, models.RootFolderID, current.FolderID)
	assert.Equal(t, []models.Breadcrumb{RootCrumb}, current.Breadcrumbs)
	assert.Len(t, current.Entries, 5)

	// Entries of the listed folder are not navigable from the root.
	_, err = b.NavigateInto(ctx, "f1")
	assert.Error(t, err)

	listing, err = b.ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.RootFolderID, listing.FolderID)
	assert.Len(t, listing.Entries, 5)
}

func TestBrowser_ListChildrenRemote(t *testing.T) {
	remote := &stubSource{pages: map[string]Page{
		"d2|": {Entries: []models.FileSystemEntry{doc("p2", "CNH.jpg", "https://drive/p2")}, NextPageToken: "n"},
	}}
	b := NewBrowser(remote, "drive-root", logger.NewTestLogger(t))

	listing, err := b.ListChildren(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, listing.Mode)
	assert.Equal(t, []string{"CNH.jpg"}, names(listing.Entries))
	assert.Equal(t, "n", listing.NextPageToken)
	assert.Equal(t, []models.Breadcrumb{RootCrumb}, b.Current().Breadcrumbs)
}

func TestBrowser_Errors(t *testing.T) {
	b := NewBrowser(nil, "", logger.NewTestLogger(t))
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.NavigateInto(ctx, "nope")
	assert.Error(t, err)

	_, err = b.NavigateToBreadcrumb(ctx, 3)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestBrowser_RemoteUsesRootFolderAndViewURL(t *testing.T) {
	remote := &stubSource{pages: map[string]Page{
		"drive-root|": {Entries: []models.FileSystemEntry{folder("d1", "Clientes")}},
		"d1|":         {Entries: []models.FileSystemEntry{doc("p1", "Apolice.pdf", "https://drive/p1")}},
	}}
	b := NewBrowser(remote, "drive-root", logger.NewTestLogger(t))
	ctx := context.Background()

	listing, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, listing.Mode)
	assert.Equal(t, []string{"Clientes"}, names(listing.Entries))

	_, err = b.NavigateInto(ctx, "d1")
	require.NoError(t, err)

	opened, err := b.NavigateInto(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://drive/p1", opened.URL)
	assert.Empty(t, opened.Message)
}

func TestBrowser_FallsBackToSeedOnRemoteFailure(t *testing.T) {
	remote := &stubSource{err: errors.New("token expired")}
	b := NewBrowser(remote, "", logger.NewTestLogger(t))
	before := testutil.ToFloat64(metrics.VaultFallbacks)

	listing, err := b.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeSeed, listing.Mode)
	assert.True(t, listing.FellBack)
	assert.Len(t, listing.Entries, 5)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.VaultFallbacks))

	// Seed mode sticks; the remote is not retried.
	_, err = b.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, remote.calls, 1)
}

func TestBrowser_NextPageAppends(t *testing.T) {
	remote := &stubSource{pages: map[string]Page{
		"root|":   {Entries: []models.FileSystemEntry{folder("a", "A")}, NextPageToken: "p2"},
		"root|p2": {Entries: []models.FileSystemEntry{folder("b", "B")}},
	}}
	b := NewBrowser(remote, "", logger.NewTestLogger(t))
	ctx := context.Background()

	listing, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", listing.NextPageToken)

	listing, err = b.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(listing.Entries))
	assert.Empty(t, listing.NextPageToken)
}

func TestSessions(t *testing.T) {
	s := NewSessions(func() *Browser { return NewBrowser(nil, "", nil) })
	a := s.For("u1")
	assert.Same(t, a, s.For("u1"))
	assert.NotSame(t, a, s.For("u2"))
	s.Drop("u1")
	assert.NotSame(t, a, s.For("u1"))
}

// ==========================
// Drive source
// ==========================

func TestDriveSource_List(t *testing.T) {
	var gotQuery, gotFields, gotPageSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotFields = r.URL.Query().Get("fields")
		gotPageSize = r.URL.Query().Get("pageSize")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"nextPageToken": "next-1",
			"files": [
				{"id": "f1", "name": "Clientes", "mimeType": "application/vnd.google-apps.folder", "modifiedTime": "2025-02-12T10:00:00Z"},
				{"id": "f2", "name": "Apolice.pdf", "mimeType": "application/pdf", "size": "2048", "webViewLink": "https://drive/f2", "starred": true}
			]
		}`))
	}))
	defer srv.Close()

	svc, err := drive.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	page, err := NewDriveSource(svc).List(context.Background(), "abc", "")
	require.NoError(t, err)

	assert.Equal(t, "'abc' in parents and trashed = false", gotQuery)
	assert.Equal(t, driveFields, gotFields)
	assert.Equal(t, "20", gotPageSize)

	assert.Equal(t, "next-1", page.NextPageToken)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, models.KindFolder, page.Entries[0].Kind)
	assert.Equal(t, "abc", page.Entries[0].ParentID)
	assert.Equal(t, 2025, page.Entries[0].ModifiedAt.Year())
	assert.Equal(t, int64(2048), page.Entries[1].Size)
	assert.Equal(t, "https://drive/f2", page.Entries[1].ViewURL)
	assert.True(t, page.Entries[1].Starred)
}

func TestDriveSource_ListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	svc, err := drive.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = NewDriveSource(svc).List(context.Background(), "abc", "")
	assert.Error(t, err)
}

func TestFolderQueryEscapesQuotes(t *testing.T) {
	assert.Equal(t, `'a\'b' in parents and trashed = false`, FolderQuery("a'b"))
}

// ==========================
// Redis cache
// ==========================

func TestCachedSource_MemoizesListing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	inner := &stubSource{pages: map[string]Page{"root|": {Entries: []models.FileSystemEntry{folder("a", "A")}}}}
	cached := NewCachedSource(inner, rdb, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := cached.List(ctx, "root", "")
	require.NoError(t, err)
	second, err := cached.List(ctx, "root", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.calls, 1)
	assert.True(t, mr.Exists("vault:folder:root"))
	assert.Equal(t, time.Minute, mr.TTL("vault:folder:root"))

	require.NoError(t, cached.Invalidate(ctx, "root"))
	_, err = cached.List(ctx, "root", "")
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)
}

func TestCachedSource_RedisErrorFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &stubSource{pages: map[string]Page{"root|": {Entries: []models.FileSystemEntry{folder("a", "A")}}}}
	cached := NewCachedSource(inner, rdb, time.Minute, logger.NewTestLogger(t))

	raw, err := json.Marshal(inner.pages["root|"])
	require.NoError(t, err)

	mock.ExpectGet("vault:folder:root").SetErr(errors.New("LOADING"))
	mock.ExpectSet("vault:folder:root", raw, time.Minute).SetErr(errors.New("READONLY"))

	page, err := cached.List(context.Background(), "root", "")
	require.NoError(t, err)
	assert.Len(t, page.Entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSource_SourceErrorIsNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &stubSource{err: errors.New("drive down")}
	cached := NewCachedSource(inner, rdb, time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet("vault:folder:x:tok").RedisNil()

	_, err := cached.List(context.Background(), "x", "tok")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
