// Package api exposes the portal over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creative-funding/internal/applications"
	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/common/observability"
	"creative-funding/internal/guard"
	"creative-funding/internal/models"
	"creative-funding/internal/repository"
	"creative-funding/internal/scoring"
	"creative-funding/internal/search"
)

// ApplicationService is the application workflow used by the handlers.
type ApplicationService interface {
	CreateDraft(ctx context.Context, actor models.Actor, fields models.ApplicationFields) (*models.Application, error)
	SaveDraft(ctx context.Context, actor models.Actor, id string, fields models.ApplicationFields) (*models.Application, error)
	Submit(ctx context.Context, actor models.Actor, id string, fields *models.ApplicationFields) (*models.Application, error)
	Review(ctx context.Context, actor models.Actor, id string, to models.Status, notes *string) (*models.Application, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error)
	ListMine(ctx context.Context, actor models.Actor) ([]*models.Application, error)
	ListAll(ctx context.Context, actor models.Actor, filter repository.ListFilter) ([]*models.Application, error)
	Search(ctx context.Context, actor models.Actor, q search.Query) ([]*models.Application, int, error)
	Stats(ctx context.Context, actor models.Actor) (*applications.Stats, error)
	AvailableTransitions(ctx context.Context, actor models.Actor, id string) ([]models.Status, error)
	AddComment(ctx context.Context, actor models.Actor, id, text string, internal bool) (*models.ApplicationComment, error)
	ListComments(ctx context.Context, actor models.Actor, id string) ([]*models.ApplicationComment, error)
}

type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context, session *auth.Session) error
}

type ProfileReader interface {
	Get(ctx context.Context, id string) (*models.UserProfile, error)
}

type ChatStore interface {
	Append(ctx context.Context, m *models.ChatMessage) error
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options are the collaborators of a Server. Observability and Checks are optional.
type Options struct {
	Applications  ApplicationService
	Sessions      SessionService
	Guard         *guard.Guard
	Profiles      ProfileReader
	Chats         ChatStore
	Scoring       scoring.ScoringProvider
	Assistant     scoring.Assistant
	Observability *observability.Observability
	Checks        map[string]ReadinessCheck
	SessionCookie string
	SecureCookies bool
	Logger        logger.Logger
}

type Server struct {
	apps          ApplicationService
	sessions      SessionService
	guard         *guard.Guard
	profiles      ProfileReader
	chats         ChatStore
	scoring       scoring.ScoringProvider
	assistant     scoring.Assistant
	obs           *observability.Observability
	checks        map[string]ReadinessCheck
	cookieName    string
	secureCookies bool
	logger        logger.Logger
	now           func() time.Time
}

func NewServer(opts Options) *Server {
	s := &Server{
		apps:          opts.Applications,
		sessions:      opts.Sessions,
		guard:         opts.Guard,
		profiles:      opts.Profiles,
		chats:         opts.Chats,
		scoring:       opts.Scoring,
		assistant:     opts.Assistant,
		obs:           opts.Observability,
		checks:        opts.Checks,
		cookieName:    opts.SessionCookie,
		secureCookies: opts.SecureCookies,
		logger:        logger.Component(opts.Logger, "http-api"),
		now:           func() time.Time { return time.Now().UTC() },
	}
	if s.scoring == nil {
		s.scoring = scoring.NewMockScoringProvider()
	}
	if s.assistant == nil {
		s.assistant = scoring.NewKeywordAssistant()
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authenticated := s.guard.RequireAPI(guard.GateAuthenticated)
	adminOnly := s.guard.RequireAPI(guard.GateAdminAccess)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", s.handleSignIn).Methods(http.MethodPost)
	api.Handle("/auth/signout", authenticated(http.HandlerFunc(s.handleSignOut))).Methods(http.MethodPost)
	api.Handle("/auth/session", s.guard.Identify(http.HandlerFunc(s.handleSession))).Methods(http.MethodGet)
	api.Handle("/me", authenticated(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	// Applicant
	api.Handle("/applications", authenticated(http.HandlerFunc(s.handleListMine))).Methods(http.MethodGet)
	api.Handle("/applications", authenticated(http.HandlerFunc(s.handleCreateDraft))).Methods(http.MethodPost)
	api.Handle("/applications/{id}", authenticated(http.HandlerFunc(s.handleGetApplication))).Methods(http.MethodGet)
	api.Handle("/applications/{id}", authenticated(http.HandlerFunc(s.handleSaveDraft))).Methods(http.MethodPut)
	api.Handle("/applications/{id}/submit", authenticated(http.HandlerFunc(s.handleSubmit))).Methods(http.MethodPost)
	api.Handle("/applications/{id}/comments", authenticated(http.HandlerFunc(s.handleListComments))).Methods(http.MethodGet)
	api.Handle("/applications/{id}/comments", authenticated(http.HandlerFunc(s.handleAddComment))).Methods(http.MethodPost)
	api.Handle("/applications/{id}/transitions", authenticated(http.HandlerFunc(s.handleTransitions))).Methods(http.MethodGet)
	api.Handle("/credit-score", authenticated(http.HandlerFunc(s.handleCreditScore))).Methods(http.MethodGet)
	api.Handle("/assistant", authenticated(http.HandlerFunc(s.handleAssistantInfo))).Methods(http.MethodGet)
	api.Handle("/assistant/messages", authenticated(http.HandlerFunc(s.handleAssistantMessage))).Methods(http.MethodPost)

	// Reviewer
	api.Handle("/admin/applications", adminOnly(http.HandlerFunc(s.handleListAll))).Methods(http.MethodGet)
	api.Handle("/admin/applications/search", adminOnly(http.HandlerFunc(s.handleSearch))).Methods(http.MethodGet)
	api.Handle("/admin/applications/{id}/review", adminOnly(http.HandlerFunc(s.handleReview))).Methods(http.MethodPost)
	api.Handle("/admin/stats", adminOnly(http.HandlerFunc(s.handleStats))).Methods(http.MethodGet)

	// Views
	r.HandleFunc(guard.LoginPath, s.handleLoginView).Methods(http.MethodGet)
	r.Handle(guard.HomePath, s.guard.RequireView(guard.GateAuthenticated)(http.HandlerFunc(s.handleDashboardView))).Methods(http.MethodGet)
	r.Handle("/admin", s.guard.RequireView(guard.GateAdminAccess)(http.HandlerFunc(s.handleAdminView))).Methods(http.MethodGet)

	return r
}

// ==========================
// Middleware
// ==========================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics labelled by route template and logs the request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		duration := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(duration.Seconds())
		s.obs.RecordRequest(r.Context(), route, rec.status, duration)

		fields := map[string]interface{}{
			"method":     r.Method,
			"route":      route,
			"status":     rec.status,
			"durationMs": duration.Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("Request failed", fields)
			return
		}
		s.logger.Debug("Request served", fields)
	})
}

// actor returns the lifecycle actor of a request that passed a guard.
func actor(r *http.Request) models.Actor {
	state := guard.StateFromContext(r.Context())
	if state.Identity == nil {
		return models.Actor{}
	}
	return state.Access.Actor(state.Identity.ID)
}
