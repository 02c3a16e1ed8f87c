/*
Package ledger keeps the shared balance available for PREPARATION operations.

PURPOSE:
  A single running balance plus an append-only log of every change to it.
  Approved preparation plans debit the balance, reversed approvals credit
  back exactly what was debited, and administrators can reset it to the
  configured initial value.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: DEBIT, CREDIT, RESET
  - Transaction: immutable log entry with before/after snapshots
  - State: the persisted singleton (initial, current, transactions)

DESIGN PRINCIPLES:
  1. Immutability: transactions are never modified or deleted
  2. Precision: decimal.Decimal, so a credit restores a debit exactly
  3. Idempotency: at most one un-reversed debit per business key
  4. Single source of truth: CurrentBalance is owned here; consumers read it
     instead of re-summing transactions

SEE ALSO:
  - ledger.go: Debit / Credit / Reset
  - store.go: Persistence port
  - store/: In-memory implementation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION - Immutable balance change
// =============================================================================

type Kind string

const (
	KindDebit  Kind = "DEBIT"  // approved preparation plan ("abatimento")
	KindCredit Kind = "CREDIT" // reversal of a debit ("estorno")
	KindReset  Kind = "RESET"  // administrative reset to the initial balance
)

type Transaction struct {
	ID            string
	Key           string // business document number, e.g. "P Trab Nr 00001/2025"
	Kind          Kind
	Amount        decimal.Decimal // never negative
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Timestamp     time.Time
	Actor         string
	Description   string
	Reverses      string // ID of the debit a credit reverses
}

// Delta is the signed effect of the transaction on the balance.
func (t Transaction) Delta() decimal.Decimal {
	return t.BalanceAfter.Sub(t.BalanceBefore)
}

// =============================================================================
// STATE - Persisted singleton
// =============================================================================

type State struct {
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Transactions   []Transaction // chronological
	UpdatedAt      time.Time
}

// Baseline returns the balance the current cycle started from: the last
// RESET's resulting balance, or the initial balance when never reset.
// It also returns the transactions recorded after that point.
func (s State) Baseline() (decimal.Decimal, []Transaction) {
	for i := len(s.Transactions) - 1; i >= 0; i-- {
		if s.Transactions[i].Kind == KindReset {
			return s.Transactions[i].BalanceAfter, s.Transactions[i+1:]
		}
	}
	return s.InitialBalance, s.Transactions
}

// Reconcile recomputes the balance from the baseline and the transactions
// after it. Used to verify CurrentBalance, never to replace it.
func (s State) Reconcile() decimal.Decimal {
	balance, txs := s.Baseline()
	for _, tx := range txs {
		switch tx.Kind {
		case KindDebit:
			balance = balance.Sub(tx.Amount)
		case KindCredit:
			balance = balance.Add(tx.Amount)
		}
	}
	return balance
}

// OpenDebit returns the un-reversed debit for key, if any.
func (s State) OpenDebit(key string) (Transaction, bool) {
	var open *Transaction
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		if tx.Key != key {
			continue
		}
		switch tx.Kind {
		case KindDebit:
			open = tx
		case KindCredit:
			if open != nil && tx.Reverses == open.ID {
				open = nil
			}
		}
	}
	if open == nil {
		return Transaction{}, false
	}
	return *open, true
}

// Recent returns the last n transactions in chronological order.
// n <= 0 returns all of them.
func (s State) Recent(n int) []Transaction {
	txs := s.Transactions
	if n > 0 && len(txs) > n {
		txs = txs[len(txs)-n:]
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}
