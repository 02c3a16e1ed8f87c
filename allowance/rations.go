/*
rations.go - Operational rations and plan food items

PURPOSE:
  Operational rations (R2/R3 field packs) are tracked by quantity only:
  quantity = strength × days, with no price applied in this system.

  Item is the food line of a work plan. It is either a QR/QS allowance or an
  operational ration; ComputeItem dispatches to the right calculator so plan
  submission and preview share one code path.
*/
package allowance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RationKind identifies an operational ration pack.
type RationKind string

const (
	RationR2 RationKind = "R2"
	RationR3 RationKind = "R3"
)

func (k RationKind) Valid() bool { return k == RationR2 || k == RationR3 }

// RationRequest asks for a quantity of operational rations.
type RationRequest struct {
	Strength  int
	Days      int
	Kind      RationKind
	Operation string
}

// RationResult is quantity-only; money fields are always zero.
type RationResult struct {
	Request   RationRequest
	Quantity  int
	UnitValue decimal.Decimal
	Total     decimal.Decimal
}

// Rations computes the quantity of operational rations.
func (c *Calculator) Rations(req RationRequest) (RationResult, error) {
	if req.Strength <= 0 {
		return RationResult{}, &ValidationError{Field: "strength", Reason: "must be positive"}
	}
	if req.Days <= 0 {
		return RationResult{}, &ValidationError{Field: "days", Reason: "must be positive"}
	}
	if !req.Kind.Valid() {
		return RationResult{}, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown ration kind %q", req.Kind)}
	}
	return RationResult{
		Request:   req,
		Quantity:  req.Strength * req.Days,
		UnitValue: decimal.Zero,
		Total:     decimal.Zero,
	}, nil
}

// Text is the calculation memo.
func (r RationResult) Text() string {
	return fmt.Sprintf("%d militares × %d dia(s) = %d rações operacionais", r.Request.Strength, r.Request.Days, r.Quantity)
}

// Description is the supply description printed on the plan.
func (r RationResult) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fornecimento de %d rações operacionais %s, ", r.Quantity, r.Request.Kind)
	fmt.Fprintf(&b, "com o objetivo de atender o efetivo de %d militares, ", r.Request.Strength)
	fmt.Fprintf(&b, "por %d dia(s), para consumo durante a Operação %s.", r.Request.Days, r.Request.Operation)
	return b.String()
}

// =============================================================================
// PLAN ITEMS
// =============================================================================

// ItemCategory distinguishes priced allowances from quantity-only rations.
type ItemCategory string

const (
	CategoryAllowance ItemCategory = "allowance"
	CategoryRation    ItemCategory = "ration"
)

// Item is one food line of a work plan.
type Item struct {
	Category   ItemCategory `json:"category"`
	MealType   MealType     `json:"meal_type,omitempty"`
	RationKind RationKind   `json:"ration_kind,omitempty"`
	Strength   int          `json:"strength"`
	Days       int          `json:"days"`
	Meals      int          `json:"meals,omitempty"`
	Unit       string       `json:"unit,omitempty"` // supplied organization (OM)
}

// ItemResult is the computed form of an Item.
type ItemResult struct {
	Item      Item
	Quantity  int
	UnitValue decimal.Decimal
	Total     decimal.Decimal
	Memo      string
}

// ComputeItem prices one plan item under the plan's mode.
func (c *Calculator) ComputeItem(item Item, mode Mode, operation string) (ItemResult, error) {
	switch item.Category {
	case CategoryAllowance:
		res, err := c.Compute(Request{
			Strength: item.Strength,
			Days:     item.Days,
			MealType: item.MealType,
			Meals:    item.Meals,
			Mode:     mode,
		})
		if err != nil {
			return ItemResult{}, err
		}
		return ItemResult{
			Item:      item,
			Quantity:  item.Strength,
			UnitValue: res.UnitValue,
			Total:     res.Total,
			Memo:      res.Text(),
		}, nil
	case CategoryRation:
		res, err := c.Rations(RationRequest{
			Strength:  item.Strength,
			Days:      item.Days,
			Kind:      item.RationKind,
			Operation: operation,
		})
		if err != nil {
			return ItemResult{}, err
		}
		return ItemResult{
			Item:      item,
			Quantity:  res.Quantity,
			UnitValue: res.UnitValue,
			Total:     res.Total,
			Memo:      res.Text(),
		}, nil
	default:
		return ItemResult{}, &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown item category %q", item.Category)}
	}
}
