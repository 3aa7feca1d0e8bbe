package google

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"broker-backoffice/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drive-token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, token))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))
}

func TestLoadToken_Missing(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := NewOAuthConfig(config.GoogleDriveConfig{ClientID: "id", ClientSecret: "secret"})

	assert.Equal(t, []string{DriveReadOnlyScope}, cfg.Scopes)
	assert.Equal(t, "http://localhost:8080/oauth/callback", cfg.RedirectURL)
	assert.Contains(t, cfg.Endpoint.AuthURL, "accounts.google.com")
}

func TestNewDriveService_RequiresCredentials(t *testing.T) {
	_, err := NewDriveService(context.Background(), config.GoogleDriveConfig{})
	assert.Error(t, err)
}
