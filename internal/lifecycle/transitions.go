// internal/lifecycle/transitions.go
package lifecycle

import (
	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

// ActorKind is who may perform a transition.
type ActorKind int

const (
	ActorOwner ActorKind = iota + 1
	ActorReviewer
)

func (k ActorKind) String() string {
	switch k {
	case ActorOwner:
		return "owner"
	case ActorReviewer:
		return "reviewer"
	default:
		return "unknown"
	}
}

// statusNone is the "from" state of a record that does not exist yet.
const statusNone models.Status = ""

var transitions = map[models.Status]map[models.Status]ActorKind{
	statusNone: {
		models.StatusDraft: ActorOwner,
	},
	models.StatusDraft: {
		models.StatusDraft:     ActorOwner,
		models.StatusSubmitted: ActorOwner,
	},
	models.StatusSubmitted: {
		models.StatusUnderReview:      ActorReviewer,
		models.StatusApproved:         ActorReviewer,
		models.StatusRejected:         ActorReviewer,
		models.StatusPendingDocuments: ActorReviewer,
	},
	models.StatusUnderReview: {
		models.StatusApproved:         ActorReviewer,
		models.StatusRejected:         ActorReviewer,
		models.StatusPendingDocuments: ActorReviewer,
	},
	models.StatusPendingDocuments: {
		models.StatusSubmitted: ActorOwner,
	},
}

// Allowed reports whether from→to is in the table and who may perform it.
func Allowed(from, to models.Status) (ActorKind, bool) {
	kind, ok := transitions[from][to]
	return kind, ok
}

// Targets lists the statuses reachable from from, in lifecycle order.
func Targets(from models.Status) []models.Status {
	out := make([]models.Status, 0, 4)
	for _, s := range models.Statuses {
		if _, ok := transitions[from][s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// TargetsFor lists the transitions actor may perform on app right now.
func TargetsFor(actor models.Actor, app *models.Application) []models.Status {
	out := make([]models.Status, 0, 4)
	for _, to := range Targets(app.Status) {
		if to == app.Status {
			continue
		}
		if Authorize(actor, app, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// Authorize checks the table and the actor for app.Status→to. A nil app means creation.
func Authorize(actor models.Actor, app *models.Application, to models.Status) error {
	from := statusNone
	if app != nil {
		from = app.Status
	}

	kind, ok := Allowed(from, to)
	if !ok {
		reason := ""
		if from.Terminal() {
			reason = "terminal state"
		}
		return errors.NewInvalidTransitionError(string(from), string(to), reason)
	}

	switch kind {
	case ActorOwner:
		if actor.UserID == "" {
			return errors.NewAuthorizationError("owner transition requires an authenticated actor")
		}
		if app != nil && app.UserID != actor.UserID {
			return errors.NewAuthorizationError("only the application owner may perform this transition")
		}
	case ActorReviewer:
		if !actor.HasAdminAccess || actor.UserID == "" {
			return errors.NewAuthorizationError("only reviewers and administrators may perform this transition")
		}
	}

	return nil
}
