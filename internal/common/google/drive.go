// internal/common/google/drive.go
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"broker-backoffice/internal/common/config"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveReadOnlyScope is the only scope the vault asks for.
const DriveReadOnlyScope = drive.DriveReadonlyScope

// NewOAuthConfig builds the OAuth2 client config for the Drive vault.
func NewOAuthConfig(cfg config.GoogleDriveConfig) *oauth2.Config {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = "http://localhost:8080/oauth/callback"
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       []string{DriveReadOnlyScope},
		Endpoint:     googleoauth.Endpoint,
	}
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// LoadToken reads a token previously stored by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// NewDriveService returns an authenticated Drive client. The oauth2 client
// refreshes the access token on its own.
func NewDriveService(ctx context.Context, cfg config.GoogleDriveConfig) (*drive.Service, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("google drive credentials not configured")
	}

	token, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	client := NewOAuthConfig(cfg).Client(ctx, token)
	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return service, nil
}
