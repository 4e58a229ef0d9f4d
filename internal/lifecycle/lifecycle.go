// Package lifecycle defines the administrative state machine for property
// registrations.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/stwalsh4118/revenue/api/internal/models"
)

var (
	// ErrInvalidTransition means the action is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPreconditionFailed means the action is allowed but required data is missing.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Action is an administrative or citizen operation on a registration.
type Action string

const (
	ActionScheduleInspection Action = "schedule_inspection"
	ActionMarkAssessed       Action = "mark_assessed"
	ActionRequestCorrection  Action = "request_correction"
	ActionResubmit           Action = "resubmit"
	ActionApprove            Action = "approve"
)

type rule struct {
	from []models.RegistrationStatus
	to   models.RegistrationStatus
}

var rules = map[Action]rule{
	ActionScheduleInspection: {
		from: []models.RegistrationStatus{models.StatusPending, models.StatusResubmitted},
		to:   models.StatusForInspection,
	},
	ActionMarkAssessed: {
		from: []models.RegistrationStatus{models.StatusForInspection},
		to:   models.StatusAssessed,
	},
	ActionRequestCorrection: {
		from: []models.RegistrationStatus{models.StatusPending, models.StatusForInspection, models.StatusAssessed, models.StatusResubmitted},
		to:   models.StatusNeedsCorrection,
	},
	ActionResubmit: {
		from: []models.RegistrationStatus{models.StatusNeedsCorrection},
		to:   models.StatusResubmitted,
	},
	ActionApprove: {
		from: []models.RegistrationStatus{models.StatusAssessed},
		to:   models.StatusApproved,
	},
}

// Target returns the status an action moves a registration into.
func Target(action Action) (models.RegistrationStatus, bool) {
	r, ok := rules[action]
	return r.to, ok
}

// Next resolves an action against the current status. changed is false when
// the registration is already in the target state, which callers treat as a
// successful no-op. Approval is the exception: re-approving is rejected so
// billing can never run twice.
func Next(current models.RegistrationStatus, action Action) (next models.RegistrationStatus, changed bool, err error) {
	r, ok := rules[action]
	if !ok {
		return current, false, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	if current == r.to {
		if action == ActionApprove {
			return current, false, fmt.Errorf("%w: registration is already approved", ErrPreconditionFailed)
		}
		return current, false, nil
	}

	for _, from := range r.from {
		if current == from {
			return r.to, true, nil
		}
	}

	return current, false, fmt.Errorf("%w: cannot %s a registration that is %s", ErrInvalidTransition, action, current)
}

// AssessmentEditable reports whether land and building assessments may be written.
func AssessmentEditable(status models.RegistrationStatus) bool {
	return status == models.StatusAssessed
}

// ApprovalRequirements captures what must exist before approval.
type ApprovalRequirements struct {
	HasBuilding          bool
	LandAssessed         bool
	BuildingAssessed     bool
	BuildingValuePending bool
}

// CheckApproval returns ErrPreconditionFailed naming the first missing piece.
func CheckApproval(req ApprovalRequirements) error {
	if !req.LandAssessed {
		return fmt.Errorf("%w: land assessment is missing", ErrPreconditionFailed)
	}
	if !req.HasBuilding {
		return nil
	}
	if !req.BuildingAssessed {
		return fmt.Errorf("%w: building assessment is missing", ErrPreconditionFailed)
	}
	if req.BuildingValuePending {
		return fmt.Errorf("%w: building assessed value is pending a bracket or override", ErrPreconditionFailed)
	}
	return nil
}
