package vault

import (
	"context"
	"strings"
	"sync"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"
)

// RootCrumb heads every breadcrumb trail.
var RootCrumb = models.Breadcrumb{ID: models.RootFolderID, Name: "Drive Seguro"}

// Listing is the browser state after a navigation step.
type Listing struct {
	FolderID      string                   `json:"folderId"`
	Breadcrumbs   []models.Breadcrumb      `json:"breadcrumbs"`
	Entries       []models.FileSystemEntry `json:"entries"`
	NextPageToken string                   `json:"nextPageToken,omitempty"`
	Mode          Mode                     `json:"mode"`
	FellBack      bool                     `json:"fellBack,omitempty"`
}

// Opened is the result of activating an entry. Folder navigation fills
// Listing, documents fill Document.
type Opened struct {
	Listing  *Listing                `json:"listing,omitempty"`
	Document *models.FileSystemEntry `json:"document,omitempty"`
	URL      string                  `json:"url,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

// Browser walks the vault tree for one user. It starts on the remote source
// and switches to seed data for good after the first remote failure.
type Browser struct {
	mu       sync.Mutex
	remote   Source
	seed     Source
	rootID   string
	mode     Mode
	fellBack bool
	trail    []models.Breadcrumb
	entries  []models.FileSystemEntry
	next     string
	logger   logger.Logger
}

// NewBrowser starts in seed mode when remote is nil. rootID maps the
// logical root onto a remote folder id.
func NewBrowser(remote Source, rootID string, log logger.Logger) *Browser {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	b := &Browser{
		remote: remote,
		seed:   NewSeedSource(),
		rootID: rootID,
		mode:   ModeRemote,
		trail:  []models.Breadcrumb{RootCrumb},
		logger: log.WithFields(map[string]interface{}{"component": "vault"}),
	}
	if remote == nil {
		b.mode = ModeSeed
	}
	return b
}

func (b *Browser) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Current returns the last listing without touching the source.
func (b *Browser) Current() Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listingLocked()
}

// Refresh lists the current folder from the start.
func (b *Browser) Refresh(ctx context.Context) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadLocked(ctx, "")
}

// ListChildren lists the direct children of folderID, or the root when it
// is empty. The trail and current entries are left as they are, so the
// returned Listing carries no breadcrumbs. A remote failure still switches
// the browser to seed mode, and the seed root is listed instead.
func (b *Browser) ListChildren(ctx context.Context, folderID string) (Listing, error) {
	if folderID == "" {
		folderID = models.RootFolderID
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mode == ModeRemote {
		page, err := b.remote.List(ctx, b.remoteID(folderID), "")
		if err == nil {
			return Listing{FolderID: folderID, Entries: page.Entries, NextPageToken: page.NextPageToken, Mode: b.mode}, nil
		}
		b.fallBackLocked(folderID, err)
		b.entries, b.next = nil, ""
		folderID = models.RootFolderID
	}

	page, err := b.seed.List(ctx, folderID, "")
	if err != nil {
		return Listing{}, apperrors.NewVaultListError(folderID, err)
	}
	return Listing{FolderID: folderID, Entries: page.Entries, Mode: b.mode, FellBack: b.fellBack}, nil
}

// NextPage appends the next remote page to the current entries.
func (b *Browser) NextPage(ctx context.Context) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next == "" {
		return b.listingLocked(), nil
	}
	prev := b.entries
	wasRemote := b.mode == ModeRemote
	listing, err := b.loadLocked(ctx, b.next)
	if err != nil {
		return listing, err
	}
	if wasRemote && b.mode == ModeRemote {
		b.entries = append(append([]models.FileSystemEntry(nil), prev...), b.entries...)
		listing = b.listingLocked()
	}
	return listing, nil
}

// NavigateInto opens the entry with id from the current listing. Folders
// push a breadcrumb and are listed; documents are returned with their
// viewer URL.
func (b *Browser) NavigateInto(ctx context.Context, id string) (Opened, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var entry *models.FileSystemEntry
	for i := range b.entries {
		if b.entries[i].ID == id {
			e := b.entries[i]
			entry = &e
			break
		}
	}
	if entry == nil {
		return Opened{}, apperrors.NewResourceNotFoundError("vault", "entry "+id+" is not in the current folder")
	}

	if !entry.IsFolder() {
		opened := Opened{Document: entry, URL: entry.ViewURL}
		if entry.ViewURL == "" {
			opened.Message = "Abrindo documento seguro: " + entry.Name
		}
		return opened, nil
	}

	b.trail = append(b.trail, models.Breadcrumb{ID: entry.ID, Name: entry.Name})
	listing, err := b.loadLocked(ctx, "")
	if err != nil {
		return Opened{}, err
	}
	return Opened{Listing: &listing}, nil
}

// NavigateToBreadcrumb truncates the trail after index and lists that folder.
func (b *Browser) NavigateToBreadcrumb(ctx context.Context, index int) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.trail) {
		return Listing{}, apperrors.NewInvalidInputError("breadcrumb index out of range")
	}
	b.trail = b.trail[:index+1]
	return b.loadLocked(ctx, "")
}

// Filter narrows the current entries by a case-insensitive name match.
func (b *Browser) Filter(term string) []models.FileSystemEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.FileSystemEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if term == "" || strings.Contains(strings.ToLower(e.Name), term) {
			out = append(out, e)
		}
	}
	return out
}

func (b *Browser) loadLocked(ctx context.Context, pageToken string) (Listing, error) {
	folderID := b.trail[len(b.trail)-1].ID

	if b.mode == ModeRemote {
		page, err := b.remote.List(ctx, b.remoteID(folderID), pageToken)
		if err == nil {
			b.entries, b.next = page.Entries, page.NextPageToken
			return b.listingLocked(), nil
		}
		b.fallBackLocked(folderID, err)
		folderID = models.RootFolderID
		pageToken = ""
	}

	page, err := b.seed.List(ctx, folderID, pageToken)
	if err != nil {
		return Listing{}, apperrors.NewVaultListError(folderID, err)
	}
	b.entries, b.next = page.Entries, ""
	return b.listingLocked(), nil
}

// fallBackLocked switches to seed mode and resets navigation to the root,
// since remote folder ids mean nothing in the seed tree.
func (b *Browser) fallBackLocked(folderID string, err error) {
	b.logger.Warn("vault remote listing failed, switching to seed data", map[string]interface{}{
		"folderId": folderID,
		"error":    err.Error(),
	})
	metrics.VaultFallbacks.Inc()
	b.mode = ModeSeed
	b.fellBack = true
	b.trail = []models.Breadcrumb{RootCrumb}
}

func (b *Browser) remoteID(folderID string) string {
	if folderID == models.RootFolderID && b.rootID != "" {
		return b.rootID
	}
	return folderID
}

func (b *Browser) listingLocked() Listing {
	trail := make([]models.Breadcrumb, len(b.trail))
	copy(trail, b.trail)
	entries := make([]models.FileSystemEntry, len(b.entries))
	copy(entries, b.entries)
	return Listing{
		FolderID:      b.trail[len(b.trail)-1].ID,
		Breadcrumbs:   trail,
		Entries:       entries,
		NextPageToken: b.next,
		Mode:          b.mode,
		FellBack:      b.fellBack,
	}
}

// Sessions keeps one Browser per signed-in user.
type Sessions struct {
	mu       sync.Mutex
	browsers map[string]*Browser
	factory  func() *Browser
}

func NewSessions(factory func() *Browser) *Sessions {
	return &Sessions{browsers: make(map[string]*Browser), factory: factory}
}

// For returns the browser for key, creating it on first use.
func (s *Sessions) For(key string) *Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.browsers[key]
	if !ok {
		b = s.factory()
		s.browsers[key] = b
	}
	return b
}

// Drop forgets the browser for key, typically on sign-out.
func (s *Sessions) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.browsers, key)
}
