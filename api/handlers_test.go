/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Calculator endpoints (compute, period, rations)
- Ledger endpoints (balance, statement, admin reset)
- Plan lifecycle over HTTP (submit, approve, reject, delete)
- Authentication and role checks
- Domain error to status mapping
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/approval"
	"github.com/warp/ptrab-engine/auth"
	"github.com/warp/ptrab-engine/ledger"
	"github.com/warp/ptrab-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testSecret = "handler-test-secret"

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	l, err := ledger.New(ctx, store, ledger.DefaultInitialBalance)
	require.NoError(t, err)

	calc := allowance.NewCalculator(nil)
	now := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)
	plans := approval.NewService(store, l, calc).WithClock(func() time.Time { return now })

	h := NewHandler(calc, l, plans)
	h.Ping = store.Ping
	return &testServer{t: t, handler: NewRouter(h, RouterOptions{JWTSecret: testSecret})}
}

func (s *testServer) token(role auth.Role) string {
	s.t.Helper()
	tok, err := auth.GenerateToken("Maj Beltrano", role, testSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func preparationPlan(number string) SubmitPlanRequest {
	return SubmitPlanRequest{
		Number:    number,
		Submitter: approval.Submitter{Name: "Fulano", Rank: "Cap", Unit: "1º BIS"},
		Operation: approval.Operation{Name: "SENTINELA", Strength: 10},
		Mode:      string(allowance.ModePreparation),
		Items: []allowance.Item{
			{Category: allowance.CategoryAllowance, MealType: allowance.MealQR, Strength: 10, Days: 20},
		},
	}
}

func (s *testServer) balance() string {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/ledger/balance", nil, "")
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[BalanceDTO](s.t, rec).CurrentBalance
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestComputeAllowance_FromPeriod(t *testing.T) {
	// GIVEN: 10 militares, QR, 2 intermediate meals, 01/03 to 10/03 (10 days)
	// WHEN: The allowance is computed without an explicit day count
	// THEN: Days come from the period and the total is 10 × 2 × 7/3 × 10

	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/allowance/compute", ComputeRequest{
		Strength: 10,
		Period:   "01/03/2025 A 10/03/2025",
		MealType: "QR",
		Meals:    2,
		Mode:     "EMPLOYMENT",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[AllowanceDTO](t, rec)
	assert.Equal(t, 10, dto.Days)
	assert.Equal(t, "466.67", dto.Total)
	assert.Equal(t, "R$ 466,67", dto.TotalBRL)
	require.Len(t, dto.Segments, 1)
	assert.Equal(t, "466.67", dto.Segments[0].Subtotal)
	assert.NotEmpty(t, dto.Memo)
}

func TestComputeAllowance_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"zero strength", ComputeRequest{Strength: 0, Days: 5, MealType: "QR", Meals: 1, Mode: "EMPLOYMENT"}},
		{"unknown meal type", ComputeRequest{Strength: 5, Days: 5, MealType: "QZ", Meals: 1, Mode: "EMPLOYMENT"}},
		{"meals out of range", ComputeRequest{Strength: 5, Days: 5, MealType: "QR", Meals: 4, Mode: "EMPLOYMENT"}},
		{"bad period", ComputeRequest{Strength: 5, Period: "ontem", MealType: "QR", Meals: 1, Mode: "EMPLOYMENT"}},
		{"unknown field", map[string]any{"strength": 5, "efetivo": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/allowance/compute", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestParsePeriod(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/allowance/period", PeriodRequest{Period: "25/02/2024 a 05/03/2024"}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[PeriodDTO](t, rec)
	assert.Equal(t, "25/02/2024", dto.Start)
	assert.Equal(t, "05/03/2024", dto.End)
	assert.Equal(t, 10, dto.Days, "2024 is a leap year")
}

func TestComputeRations(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/allowance/rations", RationsRequest{
		Strength: 12, Days: 3, Kind: "R2", Operation: "SENTINELA",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[RationsDTO](t, rec)
	assert.Equal(t, 36, dto.Quantity)
	assert.Contains(t, dto.Description, "SENTINELA")
}

// =============================================================================
// LEDGER
// =============================================================================

func TestGetBalance_Fresh(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/ledger/balance", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[BalanceDTO](t, rec)
	assert.Equal(t, "5000000.00", dto.InitialBalance)
	assert.Equal(t, "5000000.00", dto.CurrentBalance)
	assert.Equal(t, "R$ 5.000.000,00", dto.CurrentBRL)
}

func TestResetLedger_RequiresAdmin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/ledger/reset", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/ledger/reset", nil, s.token(auth.RoleReviewer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/ledger/reset", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/ledger/reset", nil, s.token(auth.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	txs := decode[[]TransactionDTO](t, s.do(http.MethodGet, "/api/ledger/transactions", nil, ""))
	require.Len(t, txs, 1)
	assert.Equal(t, string(ledger.KindReset), txs[0].Kind)
	assert.Equal(t, "Maj Beltrano", txs[0].Actor, "actor comes from the token")
}

func TestGetTransactions_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/ledger/transactions?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/ledger/transactions?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PLANS
// =============================================================================

func TestPlanLifecycle_ApproveThenReject(t *testing.T) {
	// GIVEN: A submitted PREPARATION plan worth R$ 280,00
	// WHEN: A reviewer approves it, then rejects it
	// THEN: The balance drops by 280.00 and is restored on rejection

	s := newTestServer(t)
	reviewer := s.token(auth.RoleReviewer)

	rec := s.do(http.MethodPost, "/api/plans", preparationPlan("1/2025"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decode[PlanDTO](t, rec)
	assert.Equal(t, "P Trab Nr 00001/2025", plan.Number)
	assert.Equal(t, "280.00", plan.Value)
	assert.Equal(t, "pending", plan.Status)

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/approve", nil, reviewer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[PlanDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "Maj Beltrano", approved.ReviewedBy)
	assert.Equal(t, "4999720.00", s.balance())

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/reject", RejectRequest{Justification: "valores revistos"}, reviewer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rejected", decode[PlanDTO](t, rec).Status)
	assert.Equal(t, "5000000.00", s.balance())

	txs := decode[[]TransactionDTO](t, s.do(http.MethodGet, "/api/ledger/transactions", nil, ""))
	require.Len(t, txs, 2)
}

func TestApprovePlan_Errors(t *testing.T) {
	s := newTestServer(t)
	reviewer := s.token(auth.RoleReviewer)

	rec := s.do(http.MethodPost, "/api/plans/PDF_missing/approve", nil, reviewer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	plan := decode[PlanDTO](t, s.do(http.MethodPost, "/api/plans", preparationPlan("2/2025"), ""))

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/approve", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/approve", nil, reviewer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/approve", nil, reviewer)
	assert.Equal(t, http.StatusConflict, rec.Code, "already approved")

	rec = s.do(http.MethodPost, "/api/plans/"+plan.ID+"/reject", RejectRequest{}, reviewer)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "justification required")
}

func TestDeletePlan_CreditsApproved(t *testing.T) {
	s := newTestServer(t)
	reviewer := s.token(auth.RoleReviewer)

	plan := decode[PlanDTO](t, s.do(http.MethodPost, "/api/plans", preparationPlan("3/2025"), ""))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/plans/"+plan.ID+"/approve", nil, reviewer).Code)
	assert.Equal(t, "4999720.00", s.balance())

	rec := s.do(http.MethodDelete, "/api/plans/"+plan.ID, nil, reviewer)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "5000000.00", s.balance())

	rec = s.do(http.MethodGet, "/api/plans/"+plan.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlans_StatusFilter(t *testing.T) {
	s := newTestServer(t)
	reviewer := s.token(auth.RoleReviewer)

	first := decode[PlanDTO](t, s.do(http.MethodPost, "/api/plans", preparationPlan("4/2025"), ""))
	s.do(http.MethodPost, "/api/plans", preparationPlan("5/2025"), "")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/plans/"+first.ID+"/approve", nil, reviewer).Code)

	all := decode[[]PlanDTO](t, s.do(http.MethodGet, "/api/plans", nil, ""))
	assert.Len(t, all, 2)

	approved := decode[[]PlanDTO](t, s.do(http.MethodGet, "/api/plans?status=approved", nil, ""))
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	rec := s.do(http.MethodGet, "/api/plans?status=archived", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNextNumber(t *testing.T) {
	s := newTestServer(t)
	reviewer := s.token(auth.RoleReviewer)

	rec := s.do(http.MethodPost, "/api/plans/next-number?year=2026", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "allocation consumes a number")

	rec = s.do(http.MethodGet, "/api/plans/next-number?year=2026", nil, reviewer)
	assert.NotEqual(t, http.StatusOK, rec.Code)

	for i := 1; i <= 2; i++ {
		rec := s.do(http.MethodPost, "/api/plans/next-number?year=2026", nil, reviewer)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[map[string]string](t, rec)
		assert.Equal(t, fmt.Sprintf("P Trab Nr %05d/2026", i), got["number"])
	}

	rec = s.do(http.MethodPost, "/api/plans/next-number?year=abc", nil, reviewer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitPlan_DuplicateNumber(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/plans", preparationPlan("6/2025"), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/plans", preparationPlan("6/2025"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_NoSecretConfigured(t *testing.T) {
	h := requireRole("", auth.RoleReviewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &allowance.ValidationError{Field: "days", Reason: "must be positive"}, http.StatusBadRequest},
		{"invalid key", ledger.ErrInvalidKey, http.StatusBadRequest},
		{"justification", approval.ErrJustificationRequired, http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", approval.ErrPlanNotFound), http.StatusNotFound},
		{"duplicate", &ledger.DuplicateKeyError{Key: "P-1"}, http.StatusConflict},
		{"no debit", ledger.ErrNoMatchingDebit, http.StatusConflict},
		{"duplicate number", approval.ErrDuplicateNumber, http.StatusConflict},
		{"transition", &approval.TransitionError{PlanID: "x", From: approval.StatusApproved, To: approval.StatusApproved}, http.StatusConflict},
		{"insufficient", &ledger.InsufficientBalanceError{}, http.StatusUnprocessableEntity},
		{"invalid amount", ledger.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"persistence", ledger.ErrPersistence, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
