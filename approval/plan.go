/*
Package approval runs the review workflow for submitted work plans.

PURPOSE:
  A work plan ("P Trab") is submitted with its food items, priced by the
  allowance calculator, and then reviewed. Approving a PREPARATION plan
  debits the shared preparation balance; taking that approval back credits
  it again.

PLAN LIFECYCLE:
  ┌─────────────────────────────────────────────────────────────┐
  │                                                             │
  │   Submit ──▶ pending ──approve──▶ approved ──reject──┐      │
  │                 │                    ▲               │      │
  │                 └──reject──▶ rejected ┴──approve─────┘      │
  │                                                             │
  │   approve (PREPARATION)            → ledger.Debit(number)   │
  │   approved → rejected (PREPARATION) → ledger.Credit(number) │
  │   delete approved (PREPARATION)    → ledger.Credit(number)  │
  │                                                             │
  └─────────────────────────────────────────────────────────────┘

  EMPLOYMENT plans follow the same transitions without touching the
  ledger.

KEY COMPONENTS:
  Plan:    The submitted plan with its computed value and review status
  Service: Orchestrates submission, review and deletion
  Store:   Persistence port (store/sqlite implements it)

SEE ALSO:
  - number.go: Control numbers ("P Trab Nr 00001/2025")
  - ledger/ledger.go: Debit / Credit semantics
*/
package approval

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
)

// =============================================================================
// PLAN
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Submitter identifies who uploaded the plan.
type Submitter struct {
	Name string `json:"name"`
	Rank string `json:"rank,omitempty"`
	Unit string `json:"unit,omitempty"` // organization (OM)
}

// Operation describes the operation the plan supplies.
type Operation struct {
	Name      string `json:"name"`
	Period    string `json:"period,omitempty"` // "dd/mm/yyyy A dd/mm/yyyy"
	Location  string `json:"location,omitempty"`
	Requester string `json:"requester,omitempty"`
	Strength  int    `json:"strength,omitempty"`
}

type Plan struct {
	ID            string
	Number        string // "P Trab Nr 00001/2025"; ledger key for PREPARATION plans
	FileName      string
	Submitter     Submitter
	Operation     Operation
	Mode          allowance.Mode
	Items         []allowance.Item
	Value         decimal.Decimal
	Status        Status
	ReviewedBy    string
	ReviewedAt    *time.Time
	Justification string
	CreatedAt     time.Time
}

// AffectsBalance reports whether approving the plan moves the ledger.
func (p *Plan) AffectsBalance() bool {
	return p.Mode == allowance.ModePreparation
}

// LedgerDescription is the text recorded on the plan's debit.
func (p *Plan) LedgerDescription() string {
	name := p.Operation.Name
	if name == "" {
		name = "N/A"
	}
	return "P Trab: " + ShortNumber(p.Number) + " - " + name
}

// =============================================================================
// INPUTS
// =============================================================================

// SubmitInput carries everything needed to register a plan.
type SubmitInput struct {
	Number    string // optional; extracted from FileName or allocated when empty
	FileName  string
	Submitter Submitter
	Operation Operation
	Mode      allowance.Mode
	Items     []allowance.Item
}

// Decision is the outcome a reviewer picks.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) target() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	}
	return "", false
}
