// Package leadstore persists leads and publishes board snapshots.
package leadstore

import (
	"context"

	"broker-backoffice/internal/models"
)

// Store is the lead store. List returns leads newest first.
type Store interface {
	List(ctx context.Context) ([]models.Lead, error)
	Get(ctx context.Context, id string) (models.Lead, error)
	Create(ctx context.Context, lead models.Lead) (models.Lead, error)
	UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error
	// UpsertExternal inserts or refreshes a lead keyed by ExternalID.
	UpsertExternal(ctx context.Context, lead models.Lead) (models.Lead, bool, error)
}

// SnapshotFunc receives the full lead list, newest first.
type SnapshotFunc func(leads []models.Lead)

// Feed delivers a snapshot on subscribe and after every change until ctx is
// done.
type Feed interface {
	Subscribe(ctx context.Context, fn SnapshotFunc) error
}

// SearchIndex is a full-text index over leads.
type SearchIndex interface {
	Index(ctx context.Context, lead models.Lead) error
	Search(ctx context.Context, term string, size int) ([]models.Lead, error)
}
