// internal/guard/guard.go
package guard

import (
	"net/url"
	"strings"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/roles"
)

const (
	LoginPath = "/auth/login"
	HomePath  = "/dashboard"
)

// Gate is the requirement a route places on its visitor.
type Gate int

const (
	GateAuthenticated Gate = iota
	GateAdminAccess
)

func (g Gate) String() string {
	if g == GateAdminAccess {
		return "admin_access"
	}
	return "authenticated"
}

type DecisionKind string

const (
	DecisionPending       DecisionKind = "pending"
	DecisionAllow         DecisionKind = "allow"
	DecisionRedirectLogin DecisionKind = "redirect_login"
	DecisionRedirectHome  DecisionKind = "redirect_home"
)

type Decision struct {
	Kind     DecisionKind
	Location string
}

// State is what is known about the visitor when a route is evaluated.
// Loading means the session or role is still being resolved.
type State struct {
	Loading  bool
	Identity *auth.Identity
	Access   roles.Access
}

// Evaluate decides whether the visitor may see a route. It never allows or
// denies while the state is loading.
func Evaluate(state State, gate Gate, destination string) Decision {
	if state.Loading {
		return Decision{Kind: DecisionPending}
	}
	if state.Identity == nil {
		return Decision{Kind: DecisionRedirectLogin, Location: LoginRedirect(destination)}
	}
	if gate == GateAdminAccess && !state.Access.HasAdminAccess {
		return Decision{Kind: DecisionRedirectHome, Location: HomePath}
	}
	return Decision{Kind: DecisionAllow}
}

// LoginRedirect returns the sign-in location that resumes at destination.
func LoginRedirect(destination string) string {
	next := ResumeDestination(destination)
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// ResumeDestination sanitizes a post-login destination. Only local absolute
// paths are kept; anything else resumes at the dashboard.
func ResumeDestination(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return HomePath
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return HomePath
	}
	if u.Path == LoginPath || strings.HasPrefix(u.Path, "/auth/") {
		return HomePath
	}
	return u.RequestURI()
}
