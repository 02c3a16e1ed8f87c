/*
store.go - Persistence port for the ledger

PURPOSE:
  Defines what the ledger needs from durable storage. The ledger owns the
  state; a Store only loads it and durably records appended transactions.

APPEND-ONLY CONTRACT:
  - Init(): writes an empty state with the initial balance
  - Append(): atomically adds one transaction AND sets the current balance
    to tx.BalanceAfter; either both are durable or neither is
  - NO Update() or Delete() of transactions

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and development
  - store/jsonfile: Single JSON document on disk
  - store/sqlite: SQLite tables
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store handles persistence of the ledger state.
type Store interface {
	// Load returns the persisted state. found is false when nothing was
	// ever initialized.
	Load(ctx context.Context) (state State, found bool, err error)

	// Init persists a fresh state with no transactions.
	Init(ctx context.Context, initial decimal.Decimal) error

	// Append persists tx and the resulting balance atomically.
	Append(ctx context.Context, tx Transaction) error
}
