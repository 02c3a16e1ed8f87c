/*
ledger.go - Balance ledger operations

PURPOSE:
  Debit, credit and reset the shared preparation balance with a full audit
  trail. Every mutation runs as one critical section:

    lock → load → validate → build transaction → persist → unlock

  Nothing is kept in memory between calls, so a failed write leaves no
  trace: the next call loads what was actually persisted.

CRITICAL INVARIANTS:
  1. AT MOST ONE OPEN DEBIT PER KEY: a second Debit with the same key fails
     with ErrDuplicateKey until the first one is credited back
  2. EXACT REVERSAL: Credit always returns the amount of the open debit,
     never a caller-supplied amount
  3. CONSERVATION: CurrentBalance == baseline + ΣCREDIT - ΣDEBIT since the
     last RESET
  4. NO PARTIAL APPLICATION: a typed error means the state did not change

RETRIES:
  Nothing is retried here. Retrying a Debit with the same key is always
  safe because of invariant 1.

EXAMPLE FLOW:
  balance 5.000.000,00
  Debit("P Trab Nr 00001/2025", 10.000,00)  → 4.990.000,00
  Debit("P Trab Nr 00001/2025", 10.000,00)  → ErrDuplicateKey
  Credit("P Trab Nr 00001/2025")            → 5.000.000,00
  Credit("P Trab Nr 00001/2025")            → ErrNoMatchingDebit

SEE ALSO:
  - types.go: State helpers (OpenDebit, Reconcile)
  - approval/service.go: The workflow that calls Debit/Credit
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/logging"
)

// DefaultInitialBalance is the balance a new ledger starts with.
var DefaultInitialBalance = decimal.RequireFromString("5000000.00")

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	newID func() string
}

type Option func(*Ledger)

// WithClock overrides time.Now for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides the transaction ID source.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// New opens the ledger kept in store, initializing it with initial when the
// store is empty. An existing ledger keeps its persisted initial balance.
func New(ctx context.Context, store Store, initial decimal.Decimal, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}

	log := logging.FromContext(ctx)
	if initial.IsNegative() {
		return nil, fmt.Errorf("ledger: initial balance must not be negative: %s", initial)
	}

	state, found, err := store.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if !found {
		if err := store.Init(ctx, initial); err != nil {
			return nil, &PersistenceError{Op: "init", Err: err}
		}
		log.Info("ledger initialized", "initial_balance", initial.StringFixed(2))
		return l, nil
	}
	if !state.InitialBalance.Equal(initial) {
		log.Warn("configured initial balance differs from persisted ledger; keeping persisted value",
			"configured", initial.StringFixed(2), "persisted", state.InitialBalance.StringFixed(2))
	}
	if got := state.Reconcile(); !got.Equal(state.CurrentBalance) {
		log.Error("ledger balance does not reconcile with its transactions",
			"current", state.CurrentBalance.StringFixed(2), "reconciled", got.StringFixed(2))
	}
	return l, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Debit subtracts amount from the balance under key.
func (l *Ledger) Debit(ctx context.Context, key string, amount decimal.Decimal, description, actor string) (decimal.Decimal, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return decimal.Decimal{}, ErrInvalidKey
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if open, ok := state.OpenDebit(key); ok {
		return state.CurrentBalance, &DuplicateKeyError{Key: key, ExistingTxID: open.ID, Amount: open.Amount}
	}
	if amount.GreaterThan(state.CurrentBalance) {
		return state.CurrentBalance, &InsufficientBalanceError{Available: state.CurrentBalance, Requested: amount}
	}

	tx := Transaction{
		ID:            l.newID(),
		Key:           key,
		Kind:          KindDebit,
		Amount:        amount,
		BalanceBefore: state.CurrentBalance,
		BalanceAfter:  state.CurrentBalance.Sub(amount),
		Timestamp:     l.now(),
		Actor:         actor,
		Description:   description,
	}
	if err := l.persist(ctx, tx); err != nil {
		return state.CurrentBalance, err
	}
	return tx.BalanceAfter, nil
}

// Credit reverses the open debit for key, restoring exactly its amount.
func (l *Ledger) Credit(ctx context.Context, key, actor string) (decimal.Decimal, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return decimal.Decimal{}, ErrInvalidKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	debit, ok := state.OpenDebit(key)
	if !ok {
		return state.CurrentBalance, fmt.Errorf("credit %q: %w", key, ErrNoMatchingDebit)
	}

	tx := Transaction{
		ID:            l.newID(),
		Key:           key,
		Kind:          KindCredit,
		Amount:        debit.Amount,
		BalanceBefore: state.CurrentBalance,
		BalanceAfter:  state.CurrentBalance.Add(debit.Amount),
		Timestamp:     l.now(),
		Actor:         actor,
		Description:   "Estorno: " + debit.Description,
		Reverses:      debit.ID,
	}
	if err := l.persist(ctx, tx); err != nil {
		return state.CurrentBalance, err
	}
	return tx.BalanceAfter, nil
}

// Reset restores the initial balance. Open debits stay open: they can still
// be credited, and their keys still block a second debit.
//
// Role checks belong to the caller.
func (l *Ledger) Reset(ctx context.Context, actor string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	tx := Transaction{
		ID:            l.newID(),
		Key:           "RESET",
		Kind:          KindReset,
		Amount:        state.InitialBalance.Sub(state.CurrentBalance).Abs(),
		BalanceBefore: state.CurrentBalance,
		BalanceAfter:  state.InitialBalance,
		Timestamp:     l.now(),
		Actor:         actor,
		Description:   "Reset administrativo do saldo",
	}
	if err := l.persist(ctx, tx); err != nil {
		return state.CurrentBalance, err
	}
	return tx.BalanceAfter, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Balance returns the current balance.
func (l *Ledger) Balance(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return state.CurrentBalance, nil
}

// Statement returns the most recent transactions, oldest first.
// limit <= 0 returns the whole history.
func (l *Ledger) Statement(ctx context.Context, limit int) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Recent(limit), nil
}

// Snapshot returns a copy of the whole state.
func (l *Ledger) Snapshot(ctx context.Context) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return State{}, err
	}
	state.Transactions = state.Recent(0)
	return state, nil
}

// OpenDebit reports the un-reversed debit for key, if any.
func (l *Ledger) OpenDebit(ctx context.Context, key string) (Transaction, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return Transaction{}, false, err
	}
	tx, ok := state.OpenDebit(strings.TrimSpace(key))
	return tx, ok, nil
}

// =============================================================================
// INTERNALS (callers hold l.mu)
// =============================================================================

var errNotInitialized = errors.New("ledger not initialized")

func (l *Ledger) load(ctx context.Context) (State, error) {
	state, found, err := l.store.Load(ctx)
	if err != nil {
		return State{}, &PersistenceError{Op: "load", Err: err}
	}
	if !found {
		return State{}, &PersistenceError{Op: "load", Err: errNotInitialized}
	}
	return state, nil
}

func (l *Ledger) persist(ctx context.Context, tx Transaction) error {
	log := logging.FromContext(ctx)
	if err := l.store.Append(ctx, tx); err != nil {
		log.Error("ledger write failed",
			"kind", tx.Kind, "key", tx.Key, "amount", tx.Amount.StringFixed(2), "error", err)
		return &PersistenceError{Op: "append", Err: err}
	}
	log.Info("ledger updated",
		"kind", tx.Kind,
		"key", tx.Key,
		"amount", tx.Amount.StringFixed(2),
		"balance", tx.BalanceAfter.StringFixed(2),
		"actor", tx.Actor,
	)
	return nil
}
