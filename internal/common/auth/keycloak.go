// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"creative-funding/internal/common/errors"
	httpclient "creative-funding/internal/common/http"
)

// KeycloakClient signs users in with the password grant and creates accounts
// through the admin API.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	client       *httpclient.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string       `json:"id,omitempty"`
	Email         string       `json:"email"`
	Username      string       `json:"username"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []Credential `json:"credentials,omitempty"`
}

type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active   bool   `json:"active"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Exp      int64  `json:"exp,omitempty"` // seconds since epoch
	Sub      string `json:"sub,omitempty"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, client *httpclient.Client) *KeycloakClient {
	if client == nil {
		client = httpclient.NewClient(30 * time.Second)
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

func (k *KeycloakClient) realmURL(path string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s", k.baseURL, k.realm, path)
}

// serviceToken fetches an admin token using the client credentials flow and
// caches it until expiry.
func (k *KeycloakClient) serviceToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && k.tokenExpiry.After(time.Now()) {
		return k.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	var resp TokenResponse
	if err := k.client.PostForm(ctx, k.realmURL("token"), nil, form, &resp); err != nil {
		return "", errors.NewExternalServiceError("keycloak", err)
	}

	k.accessToken = resp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return k.accessToken, nil
}

func (k *KeycloakClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("username", email)
	form.Set("password", password)
	form.Set("scope", "openid email")

	var resp TokenResponse
	if err := k.client.PostForm(ctx, k.realmURL("token"), nil, form, &resp); err != nil {
		return nil, providerError("keycloak", actionSignIn, err)
	}

	session, err := k.GetCurrentSession(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}
	session.RefreshToken = resp.RefreshToken
	session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return session, nil
}

// SignUp creates an enabled account whose username is the email.
func (k *KeycloakClient) SignUp(ctx context.Context, email, password string) error {
	token, err := k.serviceToken(ctx)
	if err != nil {
		return err
	}

	user := User{
		Email:    email,
		Username: email,
		Enabled:  true,
		Credentials: []Credential{
			{Type: "password", Value: password, Temporary: false},
		},
	}

	userURL := fmt.Sprintf("%s/admin/realms/%s/users", k.baseURL, k.realm)
	err = k.client.DoJSON(ctx, http.MethodPost, userURL, map[string]string{"Authorization": "Bearer " + token}, user, nil)
	if err != nil {
		return providerError("keycloak", actionSignUp, err)
	}
	return nil
}

// SignOut revokes the session's refresh token.
func (k *KeycloakClient) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.RefreshToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("refresh_token", session.RefreshToken)

	if err := k.client.PostForm(ctx, k.realmURL("logout"), nil, form, nil); err != nil {
		return providerError("keycloak", actionSignOut, err)
	}
	return nil
}

// GetCurrentSession introspects the access token.
func (k *KeycloakClient) GetCurrentSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, errors.NewAuthenticationError("missing access token")
	}

	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	var info TokenInfo
	if err := k.client.PostForm(ctx, k.realmURL("token/introspect"), nil, form, &info); err != nil {
		return nil, providerError("keycloak", actionIntrospection, err)
	}
	if !info.Active {
		return nil, errors.NewAuthenticationError("token is not active")
	}

	email := info.Email
	if email == "" {
		email = info.Username
	}

	session := &Session{AccessToken: accessToken, User: Identity{ID: info.Sub, Email: email}}
	if info.Exp > 0 {
		session.ExpiresAt = time.Unix(info.Exp, 0)
	}
	return session, nil
}
