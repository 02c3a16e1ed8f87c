// Package store provides in-process ledger.Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	initialized bool
	state       ledger.State

	// FailNext makes the next write return this error without applying it.
	failNext error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (ledger.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized {
		return ledger.State{}, false, nil
	}
	state := m.state
	state.Transactions = make([]ledger.Transaction, len(m.state.Transactions))
	copy(state.Transactions, m.state.Transactions)
	return state, true, nil
}

func (m *Memory) Init(_ context.Context, initial decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	m.state = ledger.State{
		InitialBalance: initial,
		CurrentBalance: initial,
		UpdatedAt:      time.Now().UTC(),
	}
	m.initialized = true
	return nil
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	m.state.Transactions = append(m.state.Transactions, tx)
	m.state.CurrentBalance = tx.BalanceAfter
	m.state.UpdatedAt = tx.Timestamp
	return nil
}

// FailNextWrite makes the next Init or Append fail with err.
func (m *Memory) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}
