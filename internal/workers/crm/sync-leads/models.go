package syncleads

import (
	"context"
	"time"

	"broker-backoffice/internal/backoffice"
)

type Input struct {
	Since time.Time
}

type Output struct {
	Success bool
	Message string
	Summary *backoffice.SyncSummary
}

// Syncer imports CRM leads into the lead store.
type Syncer interface {
	SyncExternal(ctx context.Context, since time.Time) (*backoffice.SyncSummary, error)
}
