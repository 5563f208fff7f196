// internal/guard/middleware.go
package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/roles"
)

type SessionSource interface {
	GetCurrentSession(ctx context.Context, accessToken string) (*auth.Session, error)
}

type AccessResolver interface {
	Resolve(ctx context.Context, identity *auth.Identity) (roles.Access, error)
}

// Guard resolves the visitor for each request and enforces gates.
type Guard struct {
	sessions       SessionSource
	resolver       AccessResolver
	cookieName     string
	resolveTimeout time.Duration
	logger         logger.Logger
}

func New(sessions SessionSource, resolver AccessResolver, cfg config.AuthConfig, log logger.Logger) *Guard {
	return &Guard{
		sessions:       sessions,
		resolver:       resolver,
		cookieName:     cfg.SessionCookie,
		resolveTimeout: config.GetDuration(cfg.ResolveTimeout),
		logger:         logger.Component(log, "access-guard"),
	}
}

type stateKey struct{}

// Resolve computes the visitor state under the resolve deadline.
func (g *Guard) Resolve(r *http.Request) (State, *auth.Session) {
	ctx := r.Context()
	if g.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.resolveTimeout)
		defer cancel()
	}

	token := auth.TokenFromRequest(r, g.cookieName)
	if token == "" {
		return State{}, nil
	}

	session, err := g.sessions.GetCurrentSession(ctx, token)
	if err != nil {
		g.logger.Warn("Session lookup unresolved", map[string]interface{}{"error": err})
		return State{Loading: true}, nil
	}
	if session == nil {
		return State{}, nil
	}

	access, err := g.resolver.Resolve(ctx, &session.User)
	if err != nil {
		g.logger.Warn("Role resolution unresolved", map[string]interface{}{"userId": session.User.ID, "error": err})
		return State{Loading: true}, session
	}

	return State{Identity: &session.User, Access: access}, session
}

// Identify attaches the resolved session and access to the request context
// without enforcing anything.
func (g *Guard) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, g.attach(r))
	})
}

func (g *Guard) attach(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(stateKey{}).(State); ok {
		return r
	}
	state, session := g.Resolve(r)
	ctx := context.WithValue(r.Context(), stateKey{}, state)
	if session != nil && !state.Loading {
		ctx = auth.WithSession(ctx, session)
	}
	return r.WithContext(ctx)
}

// StateFromContext returns the state attached by the guard.
func StateFromContext(ctx context.Context) State {
	state, _ := ctx.Value(stateKey{}).(State)
	return state
}

// AccessFromContext returns the access of the visitor; zero for anonymous.
func AccessFromContext(ctx context.Context) roles.Access {
	return StateFromContext(ctx).Access
}

// RequireView guards browser routes with redirects.
func (g *Guard) RequireView(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = g.attach(r)
			decision := Evaluate(StateFromContext(r.Context()), gate, r.URL.RequestURI())

			switch decision.Kind {
			case DecisionAllow:
				next.ServeHTTP(w, r)
			case DecisionPending:
				writePending(w)
			default:
				http.Redirect(w, r, decision.Location, http.StatusFound)
			}
		})
	}
}

// RequireAPI guards JSON routes: anonymous visitors get 401, visitors without
// admin access on an admin gate get 403.
func (g *Guard) RequireAPI(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = g.attach(r)
			decision := Evaluate(StateFromContext(r.Context()), gate, r.URL.RequestURI())

			switch decision.Kind {
			case DecisionAllow:
				next.ServeHTTP(w, r)
			case DecisionPending:
				writePending(w)
			case DecisionRedirectLogin:
				errors.WriteJSON(w, errors.NewAuthenticationError("sign-in required"))
			default:
				errors.WriteJSON(w, errors.NewAuthorizationError("admin access required"))
			}
		})
	}
}

func writePending(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(DecisionPending)})
}
