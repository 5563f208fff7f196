package lifecycle

import (
	stderrors "errors"
	"testing"
	"time"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var (
	owner    = models.Actor{UserID: "owner-1"}
	stranger = models.Actor{UserID: "someone-else"}
	reviewer = models.Actor{UserID: "reviewer-1", HasAdminAccess: true}
)

func ptr[T any](v T) *T { return &v }

func baseTime() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func completeFields(amount float64) models.ApplicationFields {
	return models.ApplicationFields{
		ApplicationType:        ptr(models.TypeGrant),
		CreativeSector:         ptr(models.SectorMusic),
		BusinessStage:          ptr(models.StageStartup),
		BusinessName:           ptr("Nairobi Sound Lab"),
		BusinessDescription:    ptr("Recording studio for emerging artists"),
		ProjectTitle:           ptr("Community Album"),
		ProjectDescription:     ptr("A compilation album featuring ten local artists"),
		FundingPurpose:         ptr("Studio time and mastering"),
		FundingAmountRequested: ptr(amount),
	}
}

func newDraft(t *testing.T, fields models.ApplicationFields) *models.Application {
	t.Helper()
	app, err := NewDraft(owner, "app-1", fields, baseTime())
	require.NoError(t, err)
	return app
}

func submitted(t *testing.T) *models.Application {
	t.Helper()
	app := newDraft(t, completeFields(50000))
	require.NoError(t, Submit(owner, app, nil, baseTime().Add(time.Hour)))
	return app
}

// ==========================
// Draft Tests
// ==========================

func TestNewDraft_OwnedByActor(t *testing.T) {
	app := newDraft(t, models.ApplicationFields{BusinessName: ptr("Studio")})

	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, owner.UserID, app.UserID)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, models.TypeGrant, app.ApplicationType)
	assert.Equal(t, "Studio", app.BusinessName)
	assert.Nil(t, app.SubmittedAt)
	assert.Equal(t, baseTime(), app.CreatedAt)
}

func TestNewDraft_Rejections(t *testing.T) {
	_, err := NewDraft(models.Actor{}, "app-1", models.ApplicationFields{}, baseTime())
	assert.ErrorIs(t, err, errors.ErrAuthorization)

	_, err = NewDraft(owner, "app-1", models.ApplicationFields{
		CreativeSector: ptr(models.CreativeSector("sculpture")),
	}, baseTime())
	require.ErrorIs(t, err, errors.ErrValidation)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, []string{"creative_sector"}, stdErr.FieldNames())
}

func TestSaveDraft_OwnerEditsFreely(t *testing.T) {
	app := newDraft(t, models.ApplicationFields{})
	later := baseTime().Add(time.Minute)

	require.NoError(t, SaveDraft(owner, app, models.ApplicationFields{ProjectTitle: ptr("Tour")}, later))
	require.NoError(t, SaveDraft(owner, app, models.ApplicationFields{FundingPurpose: ptr("Travel")}, later))

	assert.Equal(t, "Tour", app.ProjectTitle)
	assert.Equal(t, "Travel", app.FundingPurpose)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, later, app.UpdatedAt)
}

func TestSaveDraft_NonOwnerRejectedWithoutChanges(t *testing.T) {
	app := newDraft(t, completeFields(1000))
	before := *app

	err := SaveDraft(stranger, app, models.ApplicationFields{BusinessName: ptr("Hijacked")}, baseTime())

	assert.ErrorIs(t, err, errors.ErrAuthorization)
	assert.Equal(t, before, *app)
}

func TestSaveDraft_AfterSubmissionIsInvalid(t *testing.T) {
	app := submitted(t)
	before := *app

	err := SaveDraft(owner, app, models.ApplicationFields{BusinessName: ptr("Changed")}, baseTime())

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	assert.Equal(t, before, *app)
}

// ==========================
// Submission Tests
// ==========================

func TestSubmit_MissingBusinessNameNamed(t *testing.T) {
	fields := completeFields(1000)
	fields.BusinessName = ptr("")
	app := newDraft(t, fields)
	before := *app

	err := Submit(owner, app, nil, baseTime())

	require.ErrorIs(t, err, errors.ErrValidation)
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, []string{"business_name"}, stdErr.FieldNames())
	assert.Equal(t, before, *app)
}

func TestSubmit_ReportsEveryMissingField(t *testing.T) {
	app := newDraft(t, models.ApplicationFields{})

	err := Submit(owner, app, nil, baseTime())

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, append(append([]string{}, RequiredFields...), "funding_amount_requested"), stdErr.FieldNames())
}

func TestSubmit_FundingAmountBoundary(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		wantErr bool
	}{
		{"zero blocks submission", 0, true},
		{"negative is rejected", -5, true},
		{"one is enough", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := completeFields(0)
			app := newDraft(t, fields)
			app.FundingAmountRequested = tt.amount
			now := baseTime().Add(2 * time.Hour)

			err := Submit(owner, app, nil, now)

			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrValidation)
				var stdErr *errors.StandardError
				require.True(t, stderrors.As(err, &stdErr))
				assert.Contains(t, stdErr.FieldNames(), "funding_amount_requested")
				assert.Equal(t, models.StatusDraft, app.Status)
				assert.Nil(t, app.SubmittedAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusSubmitted, app.Status)
			require.NotNil(t, app.SubmittedAt)
			assert.Equal(t, now, *app.SubmittedAt)
		})
	}
}

func TestSubmit_NonOwnerRejected(t *testing.T) {
	app := newDraft(t, completeFields(1000))
	before := *app

	assert.ErrorIs(t, Submit(stranger, app, nil, baseTime()), errors.ErrAuthorization)
	assert.ErrorIs(t, Submit(reviewer, app, nil, baseTime()), errors.ErrAuthorization)
	assert.Equal(t, before, *app)
}

func TestSubmit_SubmittedAtSetOnlyOnce(t *testing.T) {
	app := submitted(t)
	first := *app.SubmittedAt

	require.NoError(t, Review(reviewer, app, models.StatusPendingDocuments, ptr("Need bank statements"), baseTime().Add(24*time.Hour)))
	assert.Equal(t, first, *app.SubmittedAt)

	patch := models.ApplicationFields{Details: &models.ApplicationDetails{
		BankStatementsProvided: ptr(true),
		FinancialStatementsURL: ptr("https://files.example.org/statements.pdf"),
	}}
	require.NoError(t, Submit(owner, app, &patch, baseTime().Add(48*time.Hour)))

	assert.Equal(t, models.StatusSubmitted, app.Status)
	assert.Equal(t, first, *app.SubmittedAt)
	assert.True(t, *app.BankStatementsProvided)
}

func TestSubmit_ResubmissionRevalidates(t *testing.T) {
	app := submitted(t)
	require.NoError(t, Review(reviewer, app, models.StatusPendingDocuments, nil, baseTime()))
	before := *app

	err := Submit(owner, app, &models.ApplicationFields{ProjectTitle: ptr("  ")}, baseTime())

	require.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, before, *app)
}

// ==========================
// Review Tests
// ==========================

func TestReview_SetsReviewMetadata(t *testing.T) {
	app := submitted(t)
	reviewedAt := baseTime().Add(72 * time.Hour)

	require.NoError(t, Review(reviewer, app, models.StatusUnderReview, nil, reviewedAt))
	assert.Nil(t, app.ReviewNotes)

	require.NoError(t, Review(reviewer, app, models.StatusApproved, ptr("ok"), reviewedAt.Add(time.Hour)))

	assert.Equal(t, models.StatusApproved, app.Status)
	assert.Equal(t, reviewer.UserID, *app.ReviewedBy)
	assert.Equal(t, "ok", *app.ReviewNotes)
	assert.Equal(t, reviewedAt.Add(time.Hour), *app.ReviewDate)
}

func TestReview_KeepsNotesWhenNotProvided(t *testing.T) {
	app := submitted(t)
	require.NoError(t, Review(reviewer, app, models.StatusUnderReview, ptr("checking portfolio"), baseTime()))
	require.NoError(t, Review(reviewer, app, models.StatusRejected, nil, baseTime()))

	assert.Equal(t, "checking portfolio", *app.ReviewNotes)
}

func TestReview_RequiresAdminAccess(t *testing.T) {
	app := submitted(t)
	before := *app

	err := Review(owner, app, models.StatusApproved, ptr("self-approve"), baseTime())

	assert.ErrorIs(t, err, errors.ErrAuthorization)
	assert.Equal(t, before, *app)
}

func TestReview_OwnerTransitionIsNotAReview(t *testing.T) {
	app := newDraft(t, completeFields(1000))

	err := Review(reviewer, app, models.StatusSubmitted, nil, baseTime())

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	assert.Equal(t, models.StatusDraft, app.Status)
}

// ==========================
// Transition Table Tests
// ==========================

// expected mirrors the published transition table.
var expected = map[models.Status][]models.Status{
	models.StatusDraft:            {models.StatusDraft, models.StatusSubmitted},
	models.StatusSubmitted:        {models.StatusUnderReview, models.StatusPendingDocuments, models.StatusApproved, models.StatusRejected},
	models.StatusUnderReview:      {models.StatusPendingDocuments, models.StatusApproved, models.StatusRejected},
	models.StatusPendingDocuments: {models.StatusSubmitted},
	models.StatusApproved:         {},
	models.StatusRejected:         {},
}

func TestTargets_MatchTable(t *testing.T) {
	for from, targets := range expected {
		assert.ElementsMatch(t, targets, Targets(from), "from %s", from)
	}
	assert.Equal(t, []models.Status{models.StatusDraft}, Targets(""))
}

// attempt dispatches to the operation that would perform from→to.
func attempt(actor models.Actor, app *models.Application, to models.Status) error {
	switch to {
	case models.StatusDraft:
		return SaveDraft(actor, app, models.ApplicationFields{}, baseTime())
	case models.StatusSubmitted:
		return Submit(actor, app, nil, baseTime())
	default:
		return Review(actor, app, to, ptr("note"), baseTime())
	}
}

func TestTransitions_OutsideTableRejectedAndUnchanged(t *testing.T) {
	// The owner also holds admin access so only the table can reject.
	superOwner := models.Actor{UserID: owner.UserID, HasAdminAccess: true}

	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			if _, ok := Allowed(from, to); ok {
				continue
			}
			app := newDraft(t, completeFields(1000))
			app.Status = from
			before := *app

			err := attempt(superOwner, app, to)

			assert.ErrorIs(t, err, errors.ErrInvalidTransition, "%s -> %s", from, to)
			assert.Equal(t, before, *app, "%s -> %s", from, to)
		}
	}
}

func TestTransitions_TerminalStates(t *testing.T) {
	for _, terminal := range []models.Status{models.StatusApproved, models.StatusRejected} {
		assert.True(t, terminal.Terminal())
		assert.Empty(t, Targets(terminal))

		err := Authorize(reviewer, &models.Application{Status: terminal}, models.StatusUnderReview)
		require.ErrorIs(t, err, errors.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "terminal state")
	}
}

func TestTargetsFor(t *testing.T) {
	draft := newDraft(t, completeFields(1000))
	assert.Equal(t, []models.Status{models.StatusSubmitted}, TargetsFor(owner, draft))
	assert.Empty(t, TargetsFor(stranger, draft))

	review := submitted(t)
	assert.Equal(t, []models.Status{
		models.StatusUnderReview,
		models.StatusPendingDocuments,
		models.StatusApproved,
		models.StatusRejected,
	}, TargetsFor(reviewer, review))
	assert.Empty(t, TargetsFor(owner, review))
}

// ==========================
// End-to-End Flow
// ==========================

func TestLifecycle_DraftToApproved(t *testing.T) {
	app := newDraft(t, completeFields(50000))

	submittedAt := baseTime().Add(time.Hour)
	require.NoError(t, Submit(owner, app, nil, submittedAt))
	require.NoError(t, Review(reviewer, app, models.StatusUnderReview, nil, submittedAt.Add(time.Hour)))
	require.NoError(t, Review(reviewer, app, models.StatusApproved, ptr("ok"), submittedAt.Add(2*time.Hour)))

	assert.Equal(t, models.StatusApproved, app.Status)
	assert.Equal(t, reviewer.UserID, *app.ReviewedBy)
	assert.Equal(t, "ok", *app.ReviewNotes)
	assert.Equal(t, submittedAt, *app.SubmittedAt)
	assert.Equal(t, owner.UserID, app.UserID)
}
