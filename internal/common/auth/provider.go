// internal/common/auth/provider.go
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"
	httpclient "creative-funding/internal/common/http"
)

// Identity is the authenticated user as known by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// IdentityProvider is the external authentication service.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context, session *Session) error
	// GetCurrentSession resolves an access token. An invalid or expired token
	// yields an authentication error.
	GetCurrentSession(ctx context.Context, accessToken string) (*Session, error)
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg config.AuthConfig, client *httpclient.Client) (IdentityProvider, error) {
	var verifier *TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = NewTokenVerifier(cfg.JWTSecret)
	}

	switch cfg.Provider {
	case config.ProviderGoTrue:
		return NewGoTrueClient(cfg.GoTrue.URL, cfg.GoTrue.APIKey, client, verifier), nil
	case config.ProviderKeycloak:
		return NewKeycloakClient(cfg.Keycloak.URL, cfg.Keycloak.Realm, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret, client), nil
	default:
		return nil, fmt.Errorf("unsupported identity provider %q", cfg.Provider)
	}
}

// Action names passed to providerError.
const (
	actionSignIn        = "sign-in"
	actionSignUp        = "sign-up"
	actionSignOut       = "sign-out"
	actionSession       = "session lookup"
	actionIntrospection = "introspection"
)

// providerError maps transport failures into the portal error taxonomy.
// A rejected sign-up (duplicate user, weak password) is a bad request; other
// client-side rejections become authentication errors. Everything else is an
// external service failure.
func providerError(service, action string, err error) error {
	var status *httpclient.StatusError
	if stderrors.As(err, &status) && !status.Transient() && status.StatusCode < 500 {
		msg := fmt.Sprintf("%s %s rejected (status %d)", service, action, status.StatusCode)
		if action == actionSignUp {
			return errors.NewBadRequestError(msg)
		}
		return errors.NewAuthenticationError(msg)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(service, err)
	}
	return errors.NewExternalServiceError(service, err)
}
