// internal/common/auth/gotrue.go
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"creative-funding/internal/common/errors"
	httpclient "creative-funding/internal/common/http"
)

// GoTrueClient talks to a Supabase-compatible GoTrue auth server.
type GoTrueClient struct {
	baseURL  string
	apiKey   string
	client   *httpclient.Client
	verifier *TokenVerifier
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type goTrueTokenResponse struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	RefreshToken string     `json:"refresh_token"`
	User         goTrueUser `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewGoTrueClient creates a client. verifier may be nil, in which case tokens are
// resolved remotely through /user.
func NewGoTrueClient(baseURL, apiKey string, client *httpclient.Client, verifier *TokenVerifier) *GoTrueClient {
	if client == nil {
		client = httpclient.NewClient(30 * time.Second)
	}
	return &GoTrueClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		client:   client,
		verifier: verifier,
	}
}

func (g *GoTrueClient) headers(accessToken string) map[string]string {
	h := map[string]string{"apikey": g.apiKey}
	if accessToken != "" {
		h["Authorization"] = "Bearer " + accessToken
	}
	return h
}

func (g *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp goTrueTokenResponse
	err := g.client.DoJSON(ctx, http.MethodPost, g.baseURL+"/auth/v1/token?grant_type=password",
		g.headers(""), credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, providerError("gotrue", actionSignIn, err)
	}

	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		User:         Identity{ID: resp.User.ID, Email: resp.User.Email},
	}, nil
}

func (g *GoTrueClient) SignUp(ctx context.Context, email, password string) error {
	err := g.client.DoJSON(ctx, http.MethodPost, g.baseURL+"/auth/v1/signup",
		g.headers(""), credentials{Email: email, Password: password}, nil)
	if err != nil {
		return providerError("gotrue", actionSignUp, err)
	}
	return nil
}

func (g *GoTrueClient) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}
	err := g.client.DoJSON(ctx, http.MethodPost, g.baseURL+"/auth/v1/logout",
		g.headers(session.AccessToken), nil, nil)
	if err != nil {
		return providerError("gotrue", actionSignOut, err)
	}
	return nil
}

func (g *GoTrueClient) GetCurrentSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, errors.NewAuthenticationError("missing access token")
	}
	if g.verifier != nil {
		return g.verifier.Verify(accessToken)
	}

	var user goTrueUser
	if err := g.client.DoJSON(ctx, http.MethodGet, g.baseURL+"/auth/v1/user", g.headers(accessToken), nil, &user); err != nil {
		return nil, providerError("gotrue", actionSession, err)
	}
	return &Session{AccessToken: accessToken, User: Identity{ID: user.ID, Email: user.Email}}, nil
}
