/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  domain types so field names can evolve independently.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every amount is a decimal string with two places ("4990000.00"), plus a
  *_brl companion formatted for display ("R$ 4.990.000,00"). Floats never
  cross the API boundary.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/approval"
	"github.com/warp/ptrab-engine/ledger"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// ComputeRequest asks for an allowance preview. Days may be omitted when
// Period ("dd/mm/yyyy A dd/mm/yyyy") is given.
type ComputeRequest struct {
	Strength int    `json:"strength"`
	Days     int    `json:"days"`
	Period   string `json:"period,omitempty"`
	MealType string `json:"meal_type"`
	Meals    int    `json:"meals"`
	Mode     string `json:"mode"`
}

type LineDTO struct {
	Label   string `json:"label"`
	Formula string `json:"formula"`
	Amount  string `json:"amount"`
}

type SegmentDTO struct {
	Title    string    `json:"title"`
	Days     int       `json:"days"`
	Periods  int       `json:"periods,omitempty"`
	Lines    []LineDTO `json:"lines"`
	Subtotal string    `json:"subtotal"`
}

type AllowanceDTO struct {
	Strength  int          `json:"strength"`
	Days      int          `json:"days"`
	MealType  string       `json:"meal_type"`
	Meals     int          `json:"meals"`
	Mode      string       `json:"mode"`
	FullRate  string       `json:"full_rate"`
	UnitValue string       `json:"unit_value"`
	Segments  []SegmentDTO `json:"segments"`
	Total     string       `json:"total"`
	TotalBRL  string       `json:"total_brl"`
	Memo      string       `json:"memo"`
}

type RationsRequest struct {
	Strength  int    `json:"strength"`
	Days      int    `json:"days"`
	Kind      string `json:"kind"`
	Operation string `json:"operation"`
}

type RationsDTO struct {
	Quantity    int    `json:"quantity"`
	Memo        string `json:"memo"`
	Description string `json:"description"`
}

type PeriodRequest struct {
	Period string `json:"period"`
}

type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// =============================================================================
// LEDGER
// =============================================================================

type BalanceDTO struct {
	InitialBalance string    `json:"initial_balance"`
	CurrentBalance string    `json:"current_balance"`
	CurrentBRL     string    `json:"current_brl"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TransactionDTO struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Timestamp     time.Time `json:"timestamp"`
	Actor         string    `json:"actor,omitempty"`
	Description   string    `json:"description,omitempty"`
	Reverses      string    `json:"reverses,omitempty"`
}

// =============================================================================
// PLANS
// =============================================================================

type SubmitPlanRequest struct {
	Number    string             `json:"number,omitempty"`
	FileName  string             `json:"file_name,omitempty"`
	Submitter approval.Submitter `json:"submitter"`
	Operation approval.Operation `json:"operation"`
	Mode      string             `json:"mode"`
	Items     []allowance.Item   `json:"items"`
}

type RejectRequest struct {
	Justification string `json:"justification"`
}

type PlanDTO struct {
	ID            string             `json:"id"`
	Number        string             `json:"number"`
	FileName      string             `json:"file_name,omitempty"`
	Submitter     approval.Submitter `json:"submitter"`
	Operation     approval.Operation `json:"operation"`
	Mode          string             `json:"mode"`
	Items         []allowance.Item   `json:"items"`
	Value         string             `json:"value"`
	ValueBRL      string             `json:"value_brl"`
	Status        string             `json:"status"`
	ReviewedBy    string             `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time         `json:"reviewed_at,omitempty"`
	Justification string             `json:"justification,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toAllowanceDTO(res allowance.Result) AllowanceDTO {
	dto := AllowanceDTO{
		Strength:  res.Request.Strength,
		Days:      res.Request.Days,
		MealType:  string(res.Request.MealType),
		Meals:     res.Request.Meals,
		Mode:      string(res.Request.Mode),
		FullRate:  money(res.FullRate),
		UnitValue: money(res.UnitValue),
		Segments:  make([]SegmentDTO, 0, len(res.Segments)),
		Total:     money(res.Total),
		TotalBRL:  allowance.FormatBRL(res.Total),
		Memo:      res.Text(),
	}
	for _, seg := range res.Segments {
		sd := SegmentDTO{
			Title:    seg.Title(),
			Days:     seg.Days,
			Periods:  seg.Periods,
			Lines:    make([]LineDTO, 0, len(seg.Lines)),
			Subtotal: money(seg.Subtotal()),
		}
		for _, l := range seg.Lines {
			sd.Lines = append(sd.Lines, LineDTO{
				Label:   l.Label,
				Formula: l.Formula(res.FullRate),
				Amount:  money(l.Amount),
			})
		}
		dto.Segments = append(dto.Segments, sd)
	}
	return dto
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            tx.ID,
		Key:           tx.Key,
		Kind:          string(tx.Kind),
		Amount:        money(tx.Amount),
		BalanceBefore: money(tx.BalanceBefore),
		BalanceAfter:  money(tx.BalanceAfter),
		Timestamp:     tx.Timestamp,
		Actor:         tx.Actor,
		Description:   tx.Description,
		Reverses:      tx.Reverses,
	}
}

func toPlanDTO(p *approval.Plan) PlanDTO {
	items := p.Items
	if items == nil {
		items = []allowance.Item{}
	}
	return PlanDTO{
		ID:            p.ID,
		Number:        p.Number,
		FileName:      p.FileName,
		Submitter:     p.Submitter,
		Operation:     p.Operation,
		Mode:          string(p.Mode),
		Items:         items,
		Value:         money(p.Value),
		ValueBRL:      allowance.FormatBRL(p.Value),
		Status:        string(p.Status),
		ReviewedBy:    p.ReviewedBy,
		ReviewedAt:    p.ReviewedAt,
		Justification: p.Justification,
		CreatedAt:     p.CreatedAt,
	}
}
