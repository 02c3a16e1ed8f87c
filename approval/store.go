package approval

import "context"

// Store persists plans and the control-number sequence.
type Store interface {
	SavePlan(ctx context.Context, p *Plan) error
	// GetPlan returns ErrPlanNotFound when id is unknown.
	GetPlan(ctx context.Context, id string) (*Plan, error)
	// ListPlans returns plans newest first; an empty status lists all.
	ListPlans(ctx context.Context, status Status) ([]*Plan, error)
	DeletePlan(ctx context.Context, id string) error
	// NumberInUse reports whether a pending or approved plan has number.
	NumberInUse(ctx context.Context, number string) (bool, error)
	// NextSequence atomically increments and returns the year's counter.
	NextSequence(ctx context.Context, year int) (int, error)
}
