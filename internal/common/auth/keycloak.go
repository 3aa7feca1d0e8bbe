package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"broker-backoffice/internal/common/errors"
	httpclient "broker-backoffice/internal/common/http"
)

// KeycloakClient talks to the OpenID Connect endpoints of one realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *httpclient.Client
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

// UserInfo is the subset of the userinfo claims the back-office reads.
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Username      string `json:"preferred_username"`
}

type oidcError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpclient.NewClient(30 * time.Second),
	}
}

func (k *KeycloakClient) endpoint(name string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s", k.baseURL, k.realm, name)
}

// PasswordGrant exchanges e-mail and password for tokens.
func (k *KeycloakClient) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", k.clientID)
	if k.clientSecret != "" {
		data.Set("client_secret", k.clientSecret)
	}
	data.Set("username", username)
	data.Set("password", password)
	data.Set("scope", "openid email profile")

	return k.tokenRequest(ctx, data)
}

// Refresh trades a refresh token for a new token pair.
func (k *KeycloakClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", k.clientID)
	if k.clientSecret != "" {
		data.Set("client_secret", k.clientSecret)
	}
	data.Set("refresh_token", refreshToken)

	return k.tokenRequest(ctx, data)
}

func (k *KeycloakClient) tokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.endpoint("token"), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tokenResp TokenResponse
	if err := k.httpClient.DoJSON(ctx, req, &tokenResp); err != nil {
		return nil, classifyTokenError(err)
	}
	return &tokenResp, nil
}

// classifyTokenError maps the provider's failure onto the auth taxonomy.
func classifyTokenError(err error) error {
	var statusErr *httpclient.StatusError
	if !stderrors.As(err, &statusErr) {
		return errors.NewExternalServiceError("keycloak", err)
	}

	var body oidcError
	_ = json.Unmarshal([]byte(statusErr.Body), &body)
	desc := strings.ToLower(body.Description)

	switch {
	case statusErr.StatusCode == http.StatusTooManyRequests,
		strings.Contains(desc, "temporarily"):
		return errors.NewTooManyAttemptsError(body.Description)
	case body.Error == "invalid_grant",
		statusErr.StatusCode == http.StatusUnauthorized:
		return errors.NewInvalidCredentialsError(body.Description)
	case statusErr.Transient():
		return errors.NewExternalServiceError("keycloak", statusErr)
	default:
		return errors.NewAccessDeniedError(statusErr.Body)
	}
}

// UserInfo resolves the identity behind an access token.
func (k *KeycloakClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.endpoint("userinfo"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info UserInfo
	if err := k.httpClient.DoJSON(ctx, req, &info); err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return nil, errors.NewAccessDeniedError("access token rejected")
		}
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	if info.Email == "" {
		info.Email = info.Username
	}
	return &info, nil
}

// Logout ends the provider session bound to refreshToken.
func (k *KeycloakClient) Logout(ctx context.Context, refreshToken string) error {
	data := url.Values{}
	data.Set("client_id", k.clientID)
	if k.clientSecret != "" {
		data.Set("client_secret", k.clientSecret)
	}
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.endpoint("logout"), strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := k.httpClient.DoJSON(ctx, req, nil); err != nil {
		return errors.NewExternalServiceError("keycloak", err)
	}
	return nil
}
