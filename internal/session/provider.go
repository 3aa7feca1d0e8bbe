// Package session signs back-office users in and tracks their sessions.
package session

import (
	"context"
	"strings"
	"time"

	"broker-backoffice/internal/common/auth"
	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/models"
)

// Grant is a successful sign-in at the provider.
type Grant struct {
	Subject      string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Provider authenticates e-mail/password credentials.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Grant, error)
	SignOut(ctx context.Context, refreshToken string) error
}

// KeycloakProvider uses the realm's password grant and userinfo endpoint.
type KeycloakProvider struct {
	client *auth.KeycloakClient
}

func NewKeycloakProvider(client *auth.KeycloakClient) *KeycloakProvider {
	return &KeycloakProvider{client: client}
}

func (p *KeycloakProvider) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	tok, err := p.client.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}
	info, err := p.client.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	return &Grant{
		Subject:      info.Subject,
		Email:        info.Email,
		Name:         info.Name,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    time.Duration(tok.ExpiresIn) * time.Second,
	}, nil
}

func (p *KeycloakProvider) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return p.client.Logout(ctx, refreshToken)
}

// OfflineProvider is used when no identity provider is configured. Every
// sign-in fails with the offline error.
type OfflineProvider struct{}

func (OfflineProvider) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	return nil, apperrors.NewAuthOfflineError()
}

func (OfflineProvider) SignOut(ctx context.Context, refreshToken string) error {
	return nil
}

// RoleRule decides the role of an identity from its e-mail.
type RoleRule struct {
	AdminEmail  string
	AdminPrefix string
}

// RoleFor returns admin for the designated address (case-insensitive) or
// any address starting with the admin prefix, broker otherwise.
func (r RoleRule) RoleFor(email string) models.Role {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.RoleBroker
	}
	if r.AdminEmail != "" && email == strings.ToLower(strings.TrimSpace(r.AdminEmail)) {
		return models.RoleAdmin
	}
	if r.AdminPrefix != "" && strings.HasPrefix(email, strings.ToLower(r.AdminPrefix)) {
		return models.RoleAdmin
	}
	return models.RoleBroker
}

// Message is the user-facing text for a sign-in failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok {
		return apperrors.NewAccessDeniedError("").Message
	}
	switch stdErr.Code {
	case apperrors.ErrCodeAuthInvalidCredentials,
		apperrors.ErrCodeAuthTooManyAttempts,
		apperrors.ErrCodeAuthOffline,
		apperrors.ErrCodeAuthDenied:
		return stdErr.Message
	default:
		return apperrors.NewAccessDeniedError("").Message
	}
}
