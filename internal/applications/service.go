// Package applications coordinates the lifecycle, persistence and side effects of
// funding applications.
package applications

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"creative-funding/internal/common/camunda"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/common/observability"
	"creative-funding/internal/lifecycle"
	"creative-funding/internal/models"
	"creative-funding/internal/repository"
	"creative-funding/internal/search"
)

type ApplicationStore interface {
	Insert(ctx context.Context, app *models.Application) error
	Update(ctx context.Context, app *models.Application, expected models.Status) error
	Get(ctx context.Context, id string) (*models.Application, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Application, error)
	ListAll(ctx context.Context, filter repository.ListFilter) ([]*models.Application, error)
}

type CommentStore interface {
	Append(ctx context.Context, c *models.ApplicationComment) error
	ListByApplication(ctx context.Context, applicationID string, includeInternal bool) ([]*models.ApplicationComment, error)
}

type AuditAppender interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

type SearchIndex interface {
	Index(ctx context.Context, app *models.Application) error
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

// Deps are the collaborators of a Service. Publisher, Index and Observability are optional.
type Deps struct {
	Applications  ApplicationStore
	Comments      CommentStore
	Audit         AuditAppender
	Publisher     camunda.MessagePublisher
	Index         SearchIndex
	Observability *observability.Observability
}

type Service struct {
	apps      ApplicationStore
	comments  CommentStore
	audit     AuditAppender
	publisher camunda.MessagePublisher
	index     SearchIndex
	obs       *observability.Observability
	logger    logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(deps Deps, log logger.Logger) *Service {
	s := &Service{
		apps:      deps.Applications,
		comments:  deps.Comments,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		index:     deps.Index,
		obs:       deps.Observability,
		logger:    logger.Component(log, "applications"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	if s.publisher == nil {
		s.publisher = camunda.NoopPublisher{}
	}
	return s
}

// ==========================
// Owner Operations
// ==========================

func (s *Service) CreateDraft(ctx context.Context, actor models.Actor, fields models.ApplicationFields) (*models.Application, error) {
	app, err := lifecycle.NewDraft(actor, s.newID(), fields, s.now())
	if err != nil {
		return nil, s.rejected("create_draft", err)
	}

	if err := s.apps.Insert(ctx, app); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, actor, app, "", models.AuditActionCreated, nil)
	s.reindex(ctx, app)
	return app, nil
}

func (s *Service) SaveDraft(ctx context.Context, actor models.Actor, id string, fields models.ApplicationFields) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.SaveDraft(actor, app, fields, s.now()); err != nil {
		return nil, s.rejected("save_draft", err)
	}
	if err := s.apps.Update(ctx, app, models.StatusDraft); err != nil {
		return nil, err
	}

	s.reindex(ctx, app)
	return app, nil
}

// Submit moves the application to submitted, applying fields first when given.
func (s *Service) Submit(ctx context.Context, actor models.Actor, id string, fields *models.ApplicationFields) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := app.Status
	if err := lifecycle.Submit(actor, app, fields, s.now()); err != nil {
		return nil, s.rejected("submit", err)
	}
	if err := s.apps.Update(ctx, app, from); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, actor, app, from, models.AuditActionTransitioned, nil)
	s.publish(ctx, camunda.MessageApplicationSubmitted, app, from)
	s.reindex(ctx, app)
	return app, nil
}

// ==========================
// Reviewer Operations
// ==========================

// Review records a reviewer decision. notes, when non-nil, replaces the review notes.
func (s *Service) Review(ctx context.Context, actor models.Actor, id string, to models.Status, notes *string) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := app.Status
	if err := lifecycle.Review(actor, app, to, notes, s.now()); err != nil {
		return nil, s.rejected("review", err)
	}
	if err := s.apps.Update(ctx, app, from); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, actor, app, from, models.AuditActionTransitioned, notes)
	s.publish(ctx, camunda.MessageApplicationReviewed, app, from)
	s.reindex(ctx, app)
	return app, nil
}

func (s *Service) ListAll(ctx context.Context, actor models.Actor, filter repository.ListFilter) ([]*models.Application, error) {
	if err := requireAdminAccess(actor); err != nil {
		return nil, err
	}
	return s.apps.ListAll(ctx, filter)
}

// Search returns matching applications in index order. Ids the store no longer
// knows are skipped.
func (s *Service) Search(ctx context.Context, actor models.Actor, q search.Query) ([]*models.Application, int, error) {
	if err := requireAdminAccess(actor); err != nil {
		return nil, 0, err
	}
	if s.index == nil {
		return []*models.Application{}, 0, nil
	}

	result, err := s.index.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	apps := make([]*models.Application, 0, len(result.IDs))
	for _, id := range result.IDs {
		app, err := s.apps.Get(ctx, id)
		if stderrors.Is(err, errors.ErrNotFound) {
			s.logger.Warn("search hit missing from store", map[string]interface{}{"applicationId": id})
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, result.Total, nil
}

func (s *Service) Stats(ctx context.Context, actor models.Actor) (*Stats, error) {
	if err := requireAdminAccess(actor); err != nil {
		return nil, err
	}
	apps, err := s.apps.ListAll(ctx, repository.ListFilter{})
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(apps)
	return &stats, nil
}

// ==========================
// Reads
// ==========================

// Get returns the application to its owner or to actors with admin access.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canRead(actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Service) ListMine(ctx context.Context, actor models.Actor) ([]*models.Application, error) {
	if actor.UserID == "" {
		return nil, errors.NewAuthorizationError("listing applications requires an authenticated actor")
	}
	return s.apps.ListByOwner(ctx, actor.UserID)
}

// AvailableTransitions lists the statuses actor may move the application to.
func (s *Service) AvailableTransitions(ctx context.Context, actor models.Actor, id string) ([]models.Status, error) {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.TargetsFor(actor, app), nil
}

// ==========================
// Comments
// ==========================

// AddComment appends a comment. Internal comments need admin access.
func (s *Service) AddComment(ctx context.Context, actor models.Actor, id, text string, internal bool) (*models.ApplicationComment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if internal && !actor.HasAdminAccess {
		return nil, errors.NewAuthorizationError("internal comments require admin access")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError([]errors.FieldError{{
			Field:   "comment",
			Code:    lifecycle.CodeMissingRequired,
			Message: "comment is required",
		}})
	}

	comment := &models.ApplicationComment{
		ApplicationID: id,
		UserID:        actor.UserID,
		Comment:       text,
		IsInternal:    internal,
	}
	if err := s.comments.Append(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments hides internal comments from actors without admin access.
func (s *Service) ListComments(ctx context.Context, actor models.Actor, id string) ([]*models.ApplicationComment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.comments.ListByApplication(ctx, id, actor.HasAdminAccess)
}

// ==========================
// Side Effects
// ==========================

func (s *Service) rejected(operation string, err error) error {
	metrics.ApplicationTransitionsRejected.WithLabelValues(operation, string(errors.Normalize(err).Code)).Inc()
	return err
}

// recordTransition counts and audits a status change. Audit failures are logged only.
func (s *Service) recordTransition(ctx context.Context, actor models.Actor, app *models.Application, from models.Status, action string, notes *string) {
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "none"
	}
	metrics.ApplicationTransitions.WithLabelValues(fromLabel, string(app.Status)).Inc()
	s.obs.RecordTransition(ctx, fromLabel, string(app.Status))

	if s.audit == nil {
		return
	}

	details := map[string]interface{}{"to": string(app.Status)}
	if from != "" {
		details["from"] = string(from)
	}
	if notes != nil {
		details["review_notes"] = *notes
	}

	entry := &models.AuditEntry{
		EntityType: models.EntityApplication,
		EntityID:   app.ID,
		Action:     action,
		ActorID:    actor.UserID,
		Details:    details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", map[string]interface{}{
			"applicationId": app.ID,
			"action":        action,
			"error":         err.Error(),
		})
	}
}

func (s *Service) publish(ctx context.Context, message string, app *models.Application, from models.Status) {
	variables := map[string]interface{}{
		"applicationId":          app.ID,
		"userId":                 app.UserID,
		"status":                 string(app.Status),
		"previousStatus":         string(from),
		"fundingAmountRequested": app.FundingAmountRequested,
		"projectTitle":           app.ProjectTitle,
		"application":            app,
	}
	if app.ReviewNotes != nil {
		variables["reviewNotes"] = *app.ReviewNotes
	}

	if err := s.publisher.Publish(ctx, message, app.ID, variables); err != nil {
		s.logger.Warn("workflow message not published", map[string]interface{}{
			"message":       message,
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

func (s *Service) reindex(ctx context.Context, app *models.Application) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, app); err != nil {
		s.logger.Warn("search index update failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

func canRead(actor models.Actor, app *models.Application) error {
	if actor.HasAdminAccess {
		return nil
	}
	if actor.UserID == "" || app.UserID != actor.UserID {
		return errors.NewAuthorizationError("application belongs to another user")
	}
	return nil
}

func requireAdminAccess(actor models.Actor) error {
	if !actor.HasAdminAccess {
		return errors.NewAuthorizationError("admin access required")
	}
	return nil
}
