package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanNotFound is returned when no plan has the given ID.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrInvalidTransition is returned when a review does not change the status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrJustificationRequired is returned when a rejection has no reason.
	ErrJustificationRequired = errors.New("justification is required to reject a plan")

	// ErrDuplicateNumber is returned when a pending or approved plan already
	// uses the control number.
	ErrDuplicateNumber = errors.New("control number already in use")

	// ErrInvalidPlan is returned when a submission is malformed.
	ErrInvalidPlan = errors.New("invalid plan")
)

// TransitionError names the rejected status change.
type TransitionError struct {
	PlanID string
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("plan %s: cannot move from %s to %s", e.PlanID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidPlan(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPlan, reason)
}

// IsClientError returns true for workflow rule violations.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrJustificationRequired) ||
		errors.Is(err, ErrDuplicateNumber) ||
		errors.Is(err, ErrInvalidPlan)
}
