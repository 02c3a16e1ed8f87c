/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes the allowance calculator, the balance ledger and the plan review
  workflow over REST. Handles HTTP request/response and JSON encoding, and
  delegates every decision to the domain packages.

ENDPOINTS:
  Calculator:
    POST   /api/allowance/compute       Allowance with breakdown
    POST   /api/allowance/rations       Operational ration quantity
    POST   /api/allowance/period        Inclusive day count of a period

  Ledger:
    GET    /api/ledger/balance          Current balance
    GET    /api/ledger/transactions     Statement (?limit=N)
    POST   /api/ledger/reset            Reset to initial balance (admin)

  Plans:
    GET    /api/plans                   List (?status=pending|approved|rejected)
    POST   /api/plans                   Submit
    POST   /api/plans/next-number       Allocate a control number (reviewer)
    GET    /api/plans/{id}              Details
    POST   /api/plans/{id}/approve      Approve (reviewer)
    POST   /api/plans/{id}/reject       Reject with justification (reviewer)
    DELETE /api/plans/{id}              Delete, crediting back if approved (reviewer)

ERROR HANDLING:
  statusFor maps domain errors to HTTP status:
  - 400: Validation errors, invalid input
  - 404: Plan not found
  - 409: Duplicate key or number, nothing to reverse, invalid transition
  - 422: Insufficient balance, invalid amount
  - 500: Persistence and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/approval"
	"github.com/warp/ptrab-engine/auth"
	"github.com/warp/ptrab-engine/ledger"
	"github.com/warp/ptrab-engine/logging"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Calc   *allowance.Calculator
	Ledger *ledger.Ledger
	Plans  *approval.Service

	// Ping checks storage health; nil means always healthy.
	Ping func() error
}

func NewHandler(calc *allowance.Calculator, l *ledger.Ledger, plans *approval.Service) *Handler {
	return &Handler{Calc: calc, Ledger: l, Plans: plans}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CALCULATOR ENDPOINTS
// =============================================================================

func (h *Handler) ComputeAllowance(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	days := req.Days
	if days == 0 && req.Period != "" {
		p, err := allowance.ParsePeriod(req.Period)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		days = p.Days()
	}

	res, err := h.Calc.Compute(allowance.Request{
		Strength: req.Strength,
		Days:     days,
		MealType: allowance.MealType(req.MealType),
		Meals:    req.Meals,
		Mode:     allowance.Mode(req.Mode),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllowanceDTO(res))
}

func (h *Handler) ComputeRations(w http.ResponseWriter, r *http.Request) {
	var req RationsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.Calc.Rations(allowance.RationRequest{
		Strength:  req.Strength,
		Days:      req.Days,
		Kind:      allowance.RationKind(req.Kind),
		Operation: req.Operation,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RationsDTO{
		Quantity:    res.Quantity,
		Memo:        res.Text(),
		Description: res.Description(),
	})
}

func (h *Handler) ParsePeriod(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := allowance.ParsePeriod(req.Period)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodDTO{
		Start: p.Start.Format(allowance.DateLayout),
		End:   p.End.Format(allowance.DateLayout),
		Days:  p.Days(),
	})
}

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	state, err := h.Ledger.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		InitialBalance: money(state.InitialBalance),
		CurrentBalance: money(state.CurrentBalance),
		CurrentBRL:     allowance.FormatBRL(state.CurrentBalance),
		UpdatedAt:      state.UpdatedAt,
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	txs, err := h.Ledger.Statement(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.Reset(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"current_balance": money(balance),
		"current_brl":     allowance.FormatBRL(balance),
	})
}

// =============================================================================
// PLAN ENDPOINTS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Plans.List(r.Context(), approval.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	dtos := make([]PlanDTO, 0, len(plans))
	for _, p := range plans {
		dtos = append(dtos, toPlanDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SubmitPlan(w http.ResponseWriter, r *http.Request) {
	var req SubmitPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	plan, err := h.Plans.Submit(r.Context(), approval.SubmitInput{
		Number:    req.Number,
		FileName:  req.FileName,
		Submitter: req.Submitter,
		Operation: req.Operation,
		Mode:      allowance.Mode(req.Mode),
		Items:     req.Items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 2000 || y > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year", err)
			return
		}
		year = y
	}

	number, err := h.Plans.NextNumber(r.Context(), year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"number": number})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (h *Handler) ApprovePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.Review(r.Context(), chi.URLParam(r, "id"), actorFrom(r), approval.DecisionApprove, "")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (h *Handler) RejectPlan(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	plan, err := h.Plans.Review(r.Context(), chi.URLParam(r, "id"), actorFrom(r), approval.DecisionReject, req.Justification)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func actorFrom(r *http.Request) string {
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		return c.Actor
	}
	return ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, approval.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateKey),
		errors.Is(err, ledger.ErrNoMatchingDebit),
		errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, approval.ErrDuplicateNumber):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case allowance.IsClientError(err),
		errors.Is(err, approval.ErrInvalidPlan),
		errors.Is(err, approval.ErrJustificationRequired),
		errors.Is(err, ledger.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, status, "internal error", nil)
		return
	}

	var details any = err.Error()
	var insErr *ledger.InsufficientBalanceError
	if errors.As(err, &insErr) {
		details = map[string]string{
			"available": money(insErr.Available),
			"requested": money(insErr.Requested),
			"shortfall": money(insErr.Shortfall()),
		}
	}
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Details: details})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
