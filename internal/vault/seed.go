package vault

import (
	"context"
	"time"

	"broker-backoffice/internal/models"
)

const mib = 1024 * 1024

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func seedFolder(id, name, modified string) models.FileSystemEntry {
	return models.FileSystemEntry{
		ID:         id,
		Name:       name,
		Kind:       models.KindFolder,
		ParentID:   models.RootFolderID,
		MimeType:   models.FolderMimeType,
		ModifiedAt: day(modified),
	}
}

func seedFile(id, parent, name, mime, modified string, size int64) models.FileSystemEntry {
	return models.FileSystemEntry{
		ID:         id,
		Name:       name,
		Kind:       models.KindFromMime(mime),
		ParentID:   parent,
		MimeType:   mime,
		ModifiedAt: day(modified),
		Size:       size,
	}
}

// SeedSource serves the fixed demo tree. Unknown folders are empty.
type SeedSource struct {
	children map[string][]models.FileSystemEntry
}

func NewSeedSource() *SeedSource {
	return &SeedSource{children: map[string][]models.FileSystemEntry{
		models.RootFolderID: {
			seedFolder("cli_001", "Adalberto Souza", "2025-02-12"),
			seedFolder("cli_002", "Beatriz Engenharia Ltda", "2025-02-10"),
			seedFolder("cli_003", "Carlos & Filhos Transp.", "2025-02-14"),
			seedFolder("cli_004", "Daniela M. (Vida)", "2025-02-05"),
			seedFolder("cli_005", "Eduardo Vilela", "2025-02-15"),
		},
		"cli_001": {
			seedFile("f1", "cli_001", "Apolice_Auto_2025.pdf", "application/pdf", "2025-02-12", 24*mib/10),
			seedFile("f2", "cli_001", "CNH_Digital.jpg", "image/jpeg", "2025-01-10", 11*mib/10),
			seedFile("f3", "cli_001", "Vistoria_Previa.pdf", "application/pdf", "2025-02-12", 45*mib/10),
		},
	}}
}

func (s *SeedSource) List(ctx context.Context, folderID, pageToken string) (Page, error) {
	entries := s.children[folderID]
	out := make([]models.FileSystemEntry, len(entries))
	copy(out, entries)
	return Page{Entries: out}, nil
}
