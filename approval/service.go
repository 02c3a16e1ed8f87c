package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/logging"
)

// Ledger is the part of ledger.Ledger the workflow drives.
type Ledger interface {
	Debit(ctx context.Context, key string, amount decimal.Decimal, description, actor string) (decimal.Decimal, error)
	Credit(ctx context.Context, key, actor string) (decimal.Decimal, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates the plan lifecycle. Reviews and deletions are
// serialized so a plan's status and its ledger entry move together.
type Service struct {
	mu     sync.Mutex
	store  Store
	ledger Ledger
	calc   *allowance.Calculator
	now    func() time.Time
}

func NewService(store Store, ledger Ledger, calc *allowance.Calculator) *Service {
	if calc == nil {
		calc = allowance.NewCalculator(nil)
	}
	return &Service{
		store:  store,
		ledger: ledger,
		calc:   calc,
		now:    time.Now,
	}
}

// WithClock overrides time.Now. Returns the service for chaining.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit prices the plan's items and registers it as pending. The number
// must not belong to another pending or approved plan: it becomes the
// ledger key on approval.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Plan, error) {
	if !in.Mode.Valid() {
		return nil, invalidPlan(fmt.Sprintf("unknown mode %q", in.Mode))
	}
	if len(in.Items) == 0 {
		return nil, invalidPlan("at least one item is required")
	}

	value := decimal.Zero
	for i, item := range in.Items {
		res, err := s.calc.ComputeItem(item, in.Mode, in.Operation.Name)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		value = value.Add(res.Total)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	number, err := s.resolveNumber(ctx, in, now)
	if err != nil {
		return nil, err
	}
	inUse, err := s.store.NumberInUse(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("check control number: %w", err)
	}
	if inUse {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNumber, number)
	}

	plan := &Plan{
		ID:        planID(now),
		Number:    number,
		FileName:  in.FileName,
		Submitter: in.Submitter,
		Operation: in.Operation,
		Mode:      in.Mode,
		Items:     in.Items,
		Value:     value.Round(2),
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	logging.FromContext(ctx).Info("plan submitted",
		"plan_id", plan.ID, "number", plan.Number, "mode", plan.Mode, "value", plan.Value.StringFixed(2))
	return plan, nil
}

// Review moves a plan to the status implied by decision. Ledger failures
// abort the review and leave the plan unchanged.
func (s *Service) Review(ctx context.Context, id, reviewer string, decision Decision, justification string) (*Plan, error) {
	target, ok := decision.target()
	if !ok {
		return nil, invalidPlan(fmt.Sprintf("unknown decision %q", decision))
	}
	justification = strings.TrimSpace(justification)
	if target == StatusRejected && justification == "" {
		return nil, ErrJustificationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == target {
		return nil, &TransitionError{PlanID: plan.ID, From: plan.Status, To: target}
	}

	log := logging.FromContext(ctx).With("plan_id", plan.ID, "number", plan.Number)
	moved := s.touchesLedger(plan)
	if moved {
		switch {
		case target == StatusApproved:
			if _, err := s.ledger.Debit(ctx, plan.Number, plan.Value, plan.LedgerDescription(), reviewer); err != nil {
				return nil, fmt.Errorf("approve %s: %w", plan.ID, err)
			}
		case plan.Status == StatusApproved:
			if _, err := s.ledger.Credit(ctx, plan.Number, reviewer); err != nil {
				return nil, fmt.Errorf("reject %s: %w", plan.ID, err)
			}
		default:
			// pending → rejected: nothing was debited
			moved = false
		}
	}

	previous := *plan
	reviewedAt := s.now().UTC()
	plan.Status = target
	plan.ReviewedBy = reviewer
	plan.ReviewedAt = &reviewedAt
	plan.Justification = justification

	if err := s.store.SavePlan(ctx, plan); err != nil {
		if moved {
			s.undoLedger(ctx, &previous, target, reviewer)
		}
		return nil, fmt.Errorf("save plan: %w", err)
	}

	log.Info("plan reviewed", "from", previous.Status, "to", target, "reviewer", reviewer, "ledger", moved)
	return plan, nil
}

// Delete removes a plan. An approved PREPARATION plan is credited back
// first; the ledger history itself is never deleted.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if plan.Status == StatusApproved && s.touchesLedger(plan) {
		if _, err := s.ledger.Credit(ctx, plan.Number, actor); err != nil {
			return fmt.Errorf("delete %s: %w", plan.ID, err)
		}
	}
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	logging.FromContext(ctx).Info("plan deleted", "plan_id", plan.ID, "number", plan.Number, "actor", actor)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Plan, error) {
	return s.store.GetPlan(ctx, id)
}

// List returns plans newest first. An empty status lists every plan.
func (s *Service) List(ctx context.Context, status Status) ([]*Plan, error) {
	if status != "" && !status.Valid() {
		return nil, invalidPlan(fmt.Sprintf("unknown status %q", status))
	}
	return s.store.ListPlans(ctx, status)
}

// NextNumber allocates the next control number for year.
func (s *Service) NextNumber(ctx context.Context, year int) (string, error) {
	seq, err := s.store.NextSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("next control number: %w", err)
	}
	return FormatNumber(seq, year), nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Service) resolveNumber(ctx context.Context, in SubmitInput, now time.Time) (string, error) {
	if explicit := strings.TrimSpace(in.Number); explicit != "" {
		if n, ok := ExtractNumber(explicit, now); ok {
			return n, nil
		}
		return explicit, nil
	}
	if n, ok := ExtractNumber(in.FileName, now); ok {
		return n, nil
	}
	return s.NextNumber(ctx, now.Year())
}

// touchesLedger reports whether reviews of the plan debit or credit the
// ledger. Zero-value plans (rations only) never do.
func (s *Service) touchesLedger(p *Plan) bool {
	return s.ledger != nil && p.AffectsBalance() && p.Value.IsPositive()
}

// undoLedger reverts a ledger move whose plan update could not be saved.
func (s *Service) undoLedger(ctx context.Context, p *Plan, target Status, actor string) {
	var err error
	if target == StatusApproved {
		_, err = s.ledger.Credit(ctx, p.Number, actor)
	} else {
		_, err = s.ledger.Debit(ctx, p.Number, p.Value, p.LedgerDescription(), actor)
	}
	if err != nil {
		logging.FromContext(ctx).Error("ledger compensation failed; plan and ledger disagree",
			"plan_id", p.ID, "number", p.Number, "error", err)
	}
}

func planID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PDF_" + now.Format("20060102_150405") + "_" + hex[:8]
}

// IsNotFound is a shorthand for errors.Is(err, ErrPlanNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}
