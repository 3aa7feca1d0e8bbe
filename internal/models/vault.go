// internal/models/vault.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// RootFolderID is the parent of every top level vault entry.
const RootFolderID = "root"

type EntryKind string

const (
	KindFolder      EntryKind = "folder"
	KindPDF         EntryKind = "pdf"
	KindImage       EntryKind = "image"
	KindSpreadsheet EntryKind = "spreadsheet"
	KindVideo       EntryKind = "video"
	KindOther       EntryKind = "other"
)

// FolderMimeType identifies folders in Drive listings.
const FolderMimeType = "application/vnd.google-apps.folder"

// KindFromMime classifies a Drive mime type.
func KindFromMime(mime string) EntryKind {
	switch {
	case mime == FolderMimeType:
		return KindFolder
	case mime == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	case strings.Contains(mime, "spreadsheet"), strings.Contains(mime, "excel"), mime == "text/csv":
		return KindSpreadsheet
	default:
		return KindOther
	}
}

// FileSystemEntry is a node of the document vault tree.
type FileSystemEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         EntryKind `json:"kind"`
	ParentID     string    `json:"parentId"`
	Size         int64     `json:"size,omitempty"` // bytes, 0 when unknown
	ModifiedAt   time.Time `json:"modifiedAt"`
	Starred      bool      `json:"starred,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	ViewURL      string    `json:"viewUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

func (e FileSystemEntry) IsFolder() bool {
	return e.Kind == KindFolder
}

// HumanSize renders Size the way the vault table shows it.
func (e FileSystemEntry) HumanSize() string {
	if e.IsFolder() || e.Size <= 0 {
		return "--"
	}
	const mib = 1024 * 1024
	if e.Size > mib {
		return fmt.Sprintf("%.2f MB", float64(e.Size)/mib)
	}
	return fmt.Sprintf("%.2f KB", float64(e.Size)/1024)
}

// Breadcrumb is one step of the navigation trail.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
