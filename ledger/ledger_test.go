package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ptrab-engine/ledger"
	"github.com/warp/ptrab-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T) (*ledger.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	l, err := ledger.New(context.Background(), mem, ledger.DefaultInitialBalance)
	require.NoError(t, err)
	return l, mem
}

func assertBalance(t *testing.T, l *ledger.Ledger, want string) {
	t.Helper()
	got, err := l.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got.StringFixed(2))
}

// =============================================================================
// DEBIT
// =============================================================================

func TestLedger_Debit_DuplicateKeyRejected(t *testing.T) {
	// GIVEN: A fresh ledger at 5,000,000.00
	// WHEN: "P-001" is debited 10,000.00 twice
	// THEN: The first succeeds, the second fails and the balance is untouched

	l, _ := newTestLedger(t)
	ctx := context.Background()

	balance, err := l.Debit(ctx, "P-001", dec("10000.00"), "first", "alice")
	require.NoError(t, err)
	assert.Equal(t, "4990000.00", balance.StringFixed(2))

	_, err = l.Debit(ctx, "P-001", dec("10000.00"), "again", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)

	var dupErr *ledger.DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "P-001", dupErr.Key)
	assert.Equal(t, "10000.00", dupErr.Amount.StringFixed(2))

	assertBalance(t, l, "4990000.00")

	txs, err := l.Statement(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedger_Debit_InsufficientBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Debit(context.Background(), "BIG", dec("5000000.01"), "", "alice")

	var insErr *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &insErr)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, "0.01", insErr.Shortfall().StringFixed(2))
	assertBalance(t, l, "5000000.00")
}

func TestLedger_Debit_WholeBalanceAllowed(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.Debit(context.Background(), "ALL", dec("5000000.00"), "", "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLedger_Debit_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		amount string
		want   error
	}{
		{"empty key", "", "10.00", ledger.ErrInvalidKey},
		{"blank key", "   ", "10.00", ledger.ErrInvalidKey},
		{"zero amount", "K", "0", ledger.ErrInvalidAmount},
		{"negative amount", "K", "-1.00", ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Debit(ctx, tt.key, dec(tt.amount), "", "alice")
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, ledger.IsClientError(err))
		})
	}
	assertBalance(t, l, "5000000.00")
}

// =============================================================================
// CREDIT
// =============================================================================

func TestLedger_Credit_RestoresExactly(t *testing.T) {
	// GIVEN: "P-002" debited 2,000.00
	// WHEN: It is credited back, then credited again
	// THEN: The balance returns to its prior value; the second credit fails

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Debit(ctx, "P-002", dec("2000.00"), "plan", "alice")
	require.NoError(t, err)
	assertBalance(t, l, "4998000.00")

	balance, err := l.Credit(ctx, "P-002", "bob")
	require.NoError(t, err)
	assert.Equal(t, "5000000.00", balance.StringFixed(2))

	_, err = l.Credit(ctx, "P-002", "bob")
	assert.ErrorIs(t, err, ledger.ErrNoMatchingDebit)
	assertBalance(t, l, "5000000.00")

	txs, err := l.Statement(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.KindCredit, txs[1].Kind)
	assert.Equal(t, txs[0].ID, txs[1].Reverses)
	assert.Equal(t, "2000.00", txs[1].Amount.StringFixed(2))
}

func TestLedger_Credit_UnknownKey(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Credit(context.Background(), "NEVER", "bob")
	assert.ErrorIs(t, err, ledger.ErrNoMatchingDebit)
	assert.True(t, ledger.IsClientError(err))
}

func TestLedger_KeyReusableAfterCredit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Debit(ctx, "P-003", dec("100.00"), "", "alice")
	require.NoError(t, err)
	_, err = l.Credit(ctx, "P-003", "alice")
	require.NoError(t, err)

	_, err = l.Debit(ctx, "P-003", dec("250.00"), "", "alice")
	require.NoError(t, err)
	assertBalance(t, l, "4999750.00")

	open, ok, err := l.OpenDebit(ctx, "P-003")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "250.00", open.Amount.StringFixed(2))
}

// =============================================================================
// RESET
// =============================================================================

func TestLedger_Reset(t *testing.T) {
	// GIVEN: Two open debits
	// WHEN: An administrator resets the ledger
	// THEN: The balance is back to the initial value, open debits stay open

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Debit(ctx, "A", dec("1000.00"), "", "alice")
	require.NoError(t, err)
	_, err = l.Debit(ctx, "B", dec("500.50"), "", "alice")
	require.NoError(t, err)

	balance, err := l.Reset(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "5000000.00", balance.StringFixed(2))

	txs, err := l.Statement(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.KindReset, txs[0].Kind)
	assert.Equal(t, "1500.50", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "4998499.50", txs[0].BalanceBefore.StringFixed(2))

	_, err = l.Debit(ctx, "A", dec("1.00"), "", "alice")
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)

	balance, err = l.Credit(ctx, "A", "alice")
	require.NoError(t, err)
	assert.Equal(t, "5001000.00", balance.StringFixed(2))
}

// =============================================================================
// CONSERVATION
// =============================================================================

func TestLedger_Conservation(t *testing.T) {
	// GIVEN: A mix of debits, credits, failures and a reset
	// THEN: The balance always equals baseline - debits + credits

	l, _ := newTestLedger(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := l.Debit(ctx, "1", dec("123.45"), "", "a"); return err },
		func() error { _, err := l.Debit(ctx, "2", dec("0.01"), "", "a"); return err },
		func() error { _, err := l.Debit(ctx, "1", dec("9.99"), "", "a"); return err },
		func() error { _, err := l.Credit(ctx, "2", "a"); return err },
		func() error { _, err := l.Reset(ctx, "admin"); return err },
		func() error { _, err := l.Debit(ctx, "3", dec("777.77"), "", "a"); return err },
		func() error { _, err := l.Credit(ctx, "1", "a"); return err },
		func() error { _, err := l.Credit(ctx, "9", "a"); return err },
	}
	for i, step := range steps {
		_ = step()

		state, err := l.Snapshot(ctx)
		require.NoError(t, err)
		assert.True(t, state.Reconcile().Equal(state.CurrentBalance), "step %d: balance does not reconcile", i)
	}
	assertBalance(t, l, "4999345.68")
}

// =============================================================================
// PERSISTENCE FAILURES
// =============================================================================

func TestLedger_PersistenceFailure_LeavesStateUnchanged(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Debit(ctx, "P-010", dec("10.00"), "", "alice")
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	mem.FailNextWrite(diskFull)

	_, err = l.Debit(ctx, "P-011", dec("20.00"), "", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrPersistence)
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, ledger.IsClientError(err))

	assertBalance(t, l, "4999990.00")
	_, ok, err := l.OpenDebit(ctx, "P-011")
	require.NoError(t, err)
	assert.False(t, ok)

	// The failed key can be retried.
	_, err = l.Debit(ctx, "P-011", dec("20.00"), "", "alice")
	require.NoError(t, err)
	assertBalance(t, l, "4999970.00")
}

func TestLedger_New_KeepsPersistedInitial(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	l, err := ledger.New(ctx, mem, dec("1000.00"))
	require.NoError(t, err)
	_, err = l.Debit(ctx, "K", dec("100.00"), "", "a")
	require.NoError(t, err)

	reopened, err := ledger.New(ctx, mem, dec("9999.00"))
	require.NoError(t, err)
	assertBalance(t, reopened, "900.00")

	balance, err := reopened.Reset(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance.StringFixed(2))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentDebits_SameKey(t *testing.T) {
	// GIVEN: 20 goroutines debiting the same key
	// THEN: Exactly one succeeds

	l, _ := newTestLedger(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Debit(ctx, "SAME", dec("100.00"), "", "a"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assertBalance(t, l, "4999900.00")
}

func TestLedger_ConcurrentDebits_DistinctKeys(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Debit(ctx, fmt.Sprintf("K-%d", i), dec("10.00"), "", "a")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assertBalance(t, l, "4999500.00")
	state, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Transactions, 50)
	assert.True(t, state.Reconcile().Equal(state.CurrentBalance))
}
