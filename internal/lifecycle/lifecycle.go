// Package lifecycle owns the application status state machine. Every function works on
// a copy and commits to the passed application only when the whole operation succeeds.
package lifecycle

import (
	"time"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

// NewDraft creates a draft owned by actor.
func NewDraft(actor models.Actor, id string, fields models.ApplicationFields, now time.Time) (*models.Application, error) {
	if err := Authorize(actor, nil, models.StatusDraft); err != nil {
		return nil, err
	}
	if errs := ValidateFields(fields); len(errs) > 0 {
		return nil, errors.NewValidationError(errs)
	}

	app := &models.Application{
		ID:              id,
		UserID:          actor.UserID,
		ApplicationType: models.TypeGrant,
		Status:          models.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyFields(app, fields)
	return app, nil
}

// SaveDraft re-saves owner edits while the application is still a draft.
func SaveDraft(actor models.Actor, app *models.Application, fields models.ApplicationFields, now time.Time) error {
	if err := Authorize(actor, app, models.StatusDraft); err != nil {
		return err
	}
	if errs := ValidateFields(fields); len(errs) > 0 {
		return errors.NewValidationError(errs)
	}

	next := *app
	applyFields(&next, fields)
	next.UpdatedAt = now

	*app = next
	return nil
}

// Submit moves a draft or a pending_documents application to submitted. fields, when
// non-nil, is applied before validation so owners can supply requested documents.
func Submit(actor models.Actor, app *models.Application, fields *models.ApplicationFields, now time.Time) error {
	if err := Authorize(actor, app, models.StatusSubmitted); err != nil {
		return err
	}

	next := *app
	if fields != nil {
		if errs := ValidateFields(*fields); len(errs) > 0 {
			return errors.NewValidationError(errs)
		}
		applyFields(&next, *fields)
	}

	if errs := ValidateForSubmission(&next); len(errs) > 0 {
		return errors.NewValidationError(errs)
	}

	next.Status = models.StatusSubmitted
	if next.SubmittedAt == nil {
		submittedAt := now
		next.SubmittedAt = &submittedAt
	}
	next.UpdatedAt = now

	*app = next
	return nil
}

// Review applies a reviewer/admin decision. notes, when non-nil, replaces review_notes.
func Review(actor models.Actor, app *models.Application, to models.Status, notes *string, now time.Time) error {
	if kind, ok := Allowed(app.Status, to); ok && kind != ActorReviewer {
		return errors.NewInvalidTransitionError(string(app.Status), string(to), "not a review transition")
	}
	if err := Authorize(actor, app, to); err != nil {
		return err
	}

	next := *app
	next.Status = to

	reviewer := actor.UserID
	reviewedAt := now
	next.ReviewedBy = &reviewer
	next.ReviewDate = &reviewedAt
	if notes != nil {
		n := *notes
		next.ReviewNotes = &n
	}
	next.UpdatedAt = now

	*app = next
	return nil
}

// applyFields copies the non-nil owner fields. Ownership, status and review metadata
// are not part of ApplicationFields and cannot be reached from here.
func applyFields(app *models.Application, f models.ApplicationFields) {
	if f.ApplicationType != nil {
		app.ApplicationType = *f.ApplicationType
	}
	if f.CreativeSector != nil {
		app.CreativeSector = *f.CreativeSector
	}
	if f.BusinessStage != nil {
		app.BusinessStage = *f.BusinessStage
	}
	if f.BusinessName != nil {
		app.BusinessName = *f.BusinessName
	}
	if f.BusinessDescription != nil {
		app.BusinessDescription = *f.BusinessDescription
	}
	if f.ProjectTitle != nil {
		app.ProjectTitle = *f.ProjectTitle
	}
	if f.ProjectDescription != nil {
		app.ProjectDescription = *f.ProjectDescription
	}
	if f.FundingPurpose != nil {
		app.FundingPurpose = *f.FundingPurpose
	}
	if f.FundingAmountRequested != nil {
		app.FundingAmountRequested = *f.FundingAmountRequested
	}
	if f.CreditScore != nil {
		score := *f.CreditScore
		app.CreditScore = &score
	}
	if f.Details != nil {
		app.ApplicationDetails = *f.Details
	}
}
