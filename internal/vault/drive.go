package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"broker-backoffice/internal/models"

	"google.golang.org/api/drive/v3"
)

const (
	drivePageSize = 20
	driveFields   = "nextPageToken, files(id, name, mimeType, thumbnailLink, webViewLink, iconLink, modifiedTime, size, starred)"
)

// DriveSource lists folders through the Drive v3 API.
type DriveSource struct {
	service *drive.Service
}

func NewDriveSource(service *drive.Service) *DriveSource {
	return &DriveSource{service: service}
}

// FolderQuery selects the non-trashed children of folderID.
func FolderQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", "\\'"))
}

func (d *DriveSource) List(ctx context.Context, folderID, pageToken string) (Page, error) {
	call := d.service.Files.List().
		Q(FolderQuery(folderID)).
		PageSize(drivePageSize).
		Fields(driveFields).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("drive list %s: %w", folderID, err)
	}

	page := Page{NextPageToken: res.NextPageToken, Entries: make([]models.FileSystemEntry, 0, len(res.Files))}
	for _, f := range res.Files {
		page.Entries = append(page.Entries, entryFromDrive(f, folderID))
	}
	return page, nil
}

func entryFromDrive(f *drive.File, parentID string) models.FileSystemEntry {
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return models.FileSystemEntry{
		ID:           f.Id,
		Name:         f.Name,
		Kind:         models.KindFromMime(f.MimeType),
		ParentID:     parentID,
		Size:         f.Size,
		ModifiedAt:   modified,
		Starred:      f.Starred,
		MimeType:     f.MimeType,
		ViewURL:      f.WebViewLink,
		ThumbnailURL: f.ThumbnailLink,
	}
}
