// internal/common/auth/session.go
package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"

	"creative-funding/internal/common/errors"
)

type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

type SessionEvent struct {
	Type    EventType
	Session *Session
}

// SessionNotifier fans session changes out to subscribers.
type SessionNotifier struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(SessionEvent)
}

func NewSessionNotifier() *SessionNotifier {
	return &SessionNotifier{subscribers: make(map[int]func(SessionEvent))}
}

// OnSessionChange registers callback and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (n *SessionNotifier) OnSessionChange(callback func(SessionEvent)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subscribers[id] = callback
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			n.mu.Unlock()
		})
	}
}

func (n *SessionNotifier) publish(event SessionEvent) {
	n.mu.RLock()
	callbacks := make([]func(SessionEvent), 0, len(n.subscribers))
	for _, cb := range n.subscribers {
		callbacks = append(callbacks, cb)
	}
	n.mu.RUnlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

// SessionManager is the single entry point for authentication in the process.
type SessionManager struct {
	provider IdentityProvider
	notifier *SessionNotifier
}

func NewSessionManager(provider IdentityProvider, notifier *SessionNotifier) *SessionManager {
	if notifier == nil {
		notifier = NewSessionNotifier()
	}
	return &SessionManager{provider: provider, notifier: notifier}
}

func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, errors.NewBadRequestError("email and password are required")
	}

	session, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.notifier.publish(SessionEvent{Type: EventSignedIn, Session: session})
	return session, nil
}

func (m *SessionManager) SignUp(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.NewBadRequestError("email and password are required")
	}
	return m.provider.SignUp(ctx, email, password)
}

func (m *SessionManager) SignOut(ctx context.Context, session *Session) error {
	if err := m.provider.SignOut(ctx, session); err != nil {
		return err
	}
	m.notifier.publish(SessionEvent{Type: EventSignedOut, Session: session})
	return nil
}

// GetCurrentSession returns nil without error for an empty, invalid or expired
// token so callers can treat the request as anonymous. Provider outages are
// returned as errors.
func (m *SessionManager) GetCurrentSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, nil
	}

	session, err := m.provider.GetCurrentSession(ctx, accessToken)
	if stderrors.Is(err, errors.ErrAuthentication) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (m *SessionManager) OnSessionChange(callback func(SessionEvent)) func() {
	return m.notifier.OnSessionChange(callback)
}

type contextKey struct{}

func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// SessionFromContext returns nil for anonymous requests.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(contextKey{}).(*Session)
	return session
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if session := SessionFromContext(ctx); session != nil {
		return &session.User
	}
	return nil
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
