// Package vault browses the client document vault: a Drive folder tree or
// the built-in demo tree.
package vault

import (
	"context"

	"broker-backoffice/internal/models"
)

// Mode is the active data source of a browser.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeSeed   Mode = "seed"
)

// Page is one listing page of a folder.
type Page struct {
	Entries       []models.FileSystemEntry `json:"entries"`
	NextPageToken string                   `json:"nextPageToken,omitempty"`
}

// Source lists the children of a folder.
type Source interface {
	List(ctx context.Context, folderID, pageToken string) (Page, error)
}
