package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/models"
	"creative-funding/internal/roles"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSessions struct {
	sessions map[string]*auth.Session
	err      error
}

func (f *fakeSessions) GetCurrentSession(ctx context.Context, token string) (*auth.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[token], nil
}

type fakeResolver struct {
	access map[string]roles.Access
	block  bool
}

func (f *fakeResolver) Resolve(ctx context.Context, identity *auth.Identity) (roles.Access, error) {
	if f.block {
		<-ctx.Done()
		return roles.Access{}, ctx.Err()
	}
	return f.access[identity.ID], nil
}

var (
	member   = roles.Access{Role: models.RoleUser}
	reviewer = roles.Access{Role: models.RoleReviewer, IsReviewer: true, HasAdminAccess: true}
)

func newGuard(t *testing.T, resolver *fakeResolver) *Guard {
	t.Helper()
	sessions := &fakeSessions{sessions: map[string]*auth.Session{
		"member-token":   {AccessToken: "member-token", User: auth.Identity{ID: "member", Email: "m@example.org"}},
		"reviewer-token": {AccessToken: "reviewer-token", User: auth.Identity{ID: "reviewer", Email: "r@example.org"}},
	}}
	cfg := config.AuthConfig{SessionCookie: "portal_session", ResolveTimeout: 50}
	return New(sessions, resolver, cfg, logger.NewTestLogger(t))
}

func defaultResolver() *fakeResolver {
	return &fakeResolver{access: map[string]roles.Access{"member": member, "reviewer": reviewer}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(target, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// ==========================
// Decision Tests
// ==========================

func TestEvaluate(t *testing.T) {
	identity := &auth.Identity{ID: "u"}

	tests := []struct {
		name     string
		state    State
		gate     Gate
		expected Decision
	}{
		{
			name:     "loading is never decided",
			state:    State{Loading: true, Identity: identity, Access: reviewer},
			gate:     GateAdminAccess,
			expected: Decision{Kind: DecisionPending},
		},
		{
			name:     "anonymous on admin view",
			state:    State{},
			gate:     GateAdminAccess,
			expected: Decision{Kind: DecisionRedirectLogin, Location: "/auth/login?next=%2Fadmin"},
		},
		{
			name:     "member on admin view",
			state:    State{Identity: identity, Access: member},
			gate:     GateAdminAccess,
			expected: Decision{Kind: DecisionRedirectHome, Location: "/dashboard"},
		},
		{
			name:     "reviewer on admin view",
			state:    State{Identity: identity, Access: reviewer},
			gate:     GateAdminAccess,
			expected: Decision{Kind: DecisionAllow},
		},
		{
			name:     "member on authenticated view",
			state:    State{Identity: identity, Access: member},
			gate:     GateAuthenticated,
			expected: Decision{Kind: DecisionAllow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.state, tt.gate, "/admin"))
		})
	}
}

func TestResumeDestination(t *testing.T) {
	tests := []struct {
		next     string
		expected string
	}{
		{next: "/admin", expected: "/admin"},
		{next: "/applications/42?tab=docs", expected: "/applications/42?tab=docs"},
		{next: "", expected: "/dashboard"},
		{next: "https://evil.example.org/admin", expected: "/dashboard"},
		{next: "//evil.example.org", expected: "/dashboard"},
		{next: `/\evil.example.org`, expected: "/dashboard"},
		{next: "admin", expected: "/dashboard"},
		{next: "/auth/login?next=/admin", expected: "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResumeDestination(tt.next))
		})
	}
}

// ==========================
// Middleware Tests
// ==========================

func TestRequireView_AnonymousRedirectsWithDestination(t *testing.T) {
	g := newGuard(t, defaultResolver())
	rec := httptest.NewRecorder()

	g.RequireView(GateAdminAccess)(okHandler()).ServeHTTP(rec, request("/admin?tab=queue", ""))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fadmin%3Ftab%3Dqueue", rec.Header().Get("Location"))
}

func TestRequireView_MemberSoftDenied(t *testing.T) {
	g := newGuard(t, defaultResolver())
	rec := httptest.NewRecorder()

	g.RequireView(GateAdminAccess)(okHandler()).ServeHTTP(rec, request("/admin", "member-token"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRequireView_CookieSession(t *testing.T) {
	g := newGuard(t, defaultResolver())
	rec := httptest.NewRecorder()

	r := request("/admin", "")
	r.AddCookie(&http.Cookie{Name: "portal_session", Value: "reviewer-token"})
	g.RequireView(GateAdminAccess)(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAPI_StatusCodes(t *testing.T) {
	g := newGuard(t, defaultResolver())

	tests := []struct {
		name     string
		token    string
		gate     Gate
		expected int
	}{
		{name: "anonymous", gate: GateAuthenticated, expected: http.StatusUnauthorized},
		{name: "unknown token", token: "forged", gate: GateAuthenticated, expected: http.StatusUnauthorized},
		{name: "member on admin", token: "member-token", gate: GateAdminAccess, expected: http.StatusForbidden},
		{name: "member", token: "member-token", gate: GateAuthenticated, expected: http.StatusOK},
		{name: "reviewer on admin", token: "reviewer-token", gate: GateAdminAccess, expected: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			g.RequireAPI(tt.gate)(okHandler()).ServeHTTP(rec, request("/api/admin/stats", tt.token))
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRequireAPI_SlowResolutionIsPending(t *testing.T) {
	g := newGuard(t, &fakeResolver{block: true})
	rec := httptest.NewRecorder()

	g.RequireAPI(GateAdminAccess)(okHandler()).ServeHTTP(rec, request("/api/admin/stats", "reviewer-token"))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())
}

func TestRequireAPI_ProviderOutageIsPending(t *testing.T) {
	sessions := &fakeSessions{err: errors.NewExternalServiceError("gotrue", context.DeadlineExceeded)}
	g := New(sessions, defaultResolver(), config.AuthConfig{}, logger.NewNoOpLogger())
	rec := httptest.NewRecorder()

	g.RequireAPI(GateAuthenticated)(okHandler()).ServeHTTP(rec, request("/api/me", "member-token"))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIdentify_AttachesStateOnce(t *testing.T) {
	g := newGuard(t, defaultResolver())

	var seen State
	var identity *auth.Identity
	handler := g.Identify(g.RequireAPI(GateAuthenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StateFromContext(r.Context())
		identity = auth.IdentityFromContext(r.Context())
	})))

	handler.ServeHTTP(httptest.NewRecorder(), request("/api/me", "reviewer-token"))

	require.NotNil(t, seen.Identity)
	assert.Equal(t, "reviewer", seen.Identity.ID)
	assert.True(t, seen.Access.HasAdminAccess)
	require.NotNil(t, identity)
	assert.Equal(t, "r@example.org", identity.Email)
}
