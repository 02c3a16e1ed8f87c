/*
jsonfile.go - Ledger persisted as a single JSON document

PURPOSE:
  Keeps the whole ledger in one human-readable file, the layout the
  operators already archive and inspect by hand:

    {
      "saldo_inicial": "5000000.00",
      "saldo_atual": "4990000.00",
      "transacoes": [ {...}, ... ],
      "ultima_atualizacao": "2025-03-10T14:02:11Z"
    }

  Files written by the earlier tool carry naive local timestamps
  ("2024-05-01T10:00:00.123456") and credits without "estorna"; both are
  accepted on read. Writes always use RFC 3339 in UTC.

WRITE PROTOCOL:
  Every write re-encodes the full document to a temp file in the same
  directory, fsyncs it, then renames it over the target. A crash leaves
  either the old file or the new one, never a torn write.

SEE ALSO:
  - ledger/store.go: The port this implements
  - store/sqlite: Tabular alternative
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/ledger"
)

// =============================================================================
// DOCUMENT LAYOUT
// =============================================================================

type document struct {
	InitialBalance decimal.Decimal `json:"saldo_inicial"`
	CurrentBalance decimal.Decimal `json:"saldo_atual"`
	Transactions   []transaction   `json:"transacoes"`
	UpdatedAt      timestamp       `json:"ultima_atualizacao"`
}

type transaction struct {
	ID            string          `json:"id"`
	Key           string          `json:"numero_ptrab"`
	Kind          string          `json:"tipo"`
	Amount        decimal.Decimal `json:"valor"`
	Description   string          `json:"descricao"`
	Actor         string          `json:"homologador"`
	Timestamp     timestamp       `json:"data"`
	BalanceBefore decimal.Decimal `json:"saldo_anterior"`
	BalanceAfter  decimal.Decimal `json:"saldo_posterior"`
	Reverses      string          `json:"estorna,omitempty"`
}

// timestamp reads RFC 3339 or a naive ISO 8601 time in the local zone.
type timestamp struct {
	time.Time
}

// naiveLayout also matches fractional seconds when parsing.
const naiveLayout = "2006-01-02T15:04:05"

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = v
	return nil
}

// Transaction kinds as they appear in the file.
var kindNames = map[ledger.Kind]string{
	ledger.KindDebit:  "abatimento",
	ledger.KindCredit: "estorno",
	ledger.KindReset:  "reset",
}

func kindFromName(name string) (ledger.Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", name)
}

// =============================================================================
// STORE
// =============================================================================

type Store struct {
	mu   sync.RWMutex
	path string
}

// New returns a store backed by the file at path. The file is created on
// the first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("jsonfile: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: create directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(_ context.Context) (ledger.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, found, err := s.read()
	if err != nil || !found {
		return ledger.State{}, found, err
	}
	state, err := doc.toState()
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("jsonfile: %s: %w", s.path, err)
	}
	return state, true, nil
}

func (s *Store) Init(_ context.Context, initial decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(document{
		InitialBalance: initial,
		CurrentBalance: initial,
		Transactions:   []transaction{},
		UpdatedAt:      timestamp{time.Now().UTC()},
	})
}

func (s *Store) Append(_ context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, found, err := s.read()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("jsonfile: %s: ledger not initialized", s.path)
	}
	doc.Transactions = append(doc.Transactions, fromTransaction(tx))
	doc.CurrentBalance = tx.BalanceAfter
	doc.UpdatedAt = timestamp{tx.Timestamp}
	return s.write(doc)
}

// =============================================================================
// FILE I/O (callers hold s.mu)
// =============================================================================

func (s *Store) read() (document, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, false, nil
	}
	if err != nil {
		return document{}, false, fmt.Errorf("jsonfile: read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, false, fmt.Errorf("jsonfile: decode %s: %w", s.path, err)
	}
	return doc, true, nil
}

func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("jsonfile: replace %s: %w", s.path, err)
	}
	return nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func fromTransaction(tx ledger.Transaction) transaction {
	return transaction{
		ID:            tx.ID,
		Key:           tx.Key,
		Kind:          kindNames[tx.Kind],
		Amount:        tx.Amount,
		Description:   tx.Description,
		Actor:         tx.Actor,
		Timestamp:     timestamp{tx.Timestamp},
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Reverses:      tx.Reverses,
	}
}

// toState converts the document. A credit without "estorna" is linked to
// the latest still-open debit of the same key.
func (d document) toState() (ledger.State, error) {
	state := ledger.State{
		InitialBalance: d.InitialBalance,
		CurrentBalance: d.CurrentBalance,
		Transactions:   make([]ledger.Transaction, 0, len(d.Transactions)),
		UpdatedAt:      d.UpdatedAt.Time,
	}
	open := map[string][]string{} // key -> open debit IDs, oldest first
	for _, t := range d.Transactions {
		kind, err := kindFromName(t.Kind)
		if err != nil {
			return ledger.State{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		reverses := t.Reverses
		switch kind {
		case ledger.KindDebit:
			open[t.Key] = append(open[t.Key], t.ID)
		case ledger.KindCredit:
			ids := open[t.Key]
			if reverses == "" && len(ids) > 0 {
				reverses = ids[len(ids)-1]
			}
			open[t.Key] = removeID(ids, reverses)
		}
		state.Transactions = append(state.Transactions, ledger.Transaction{
			ID:            t.ID,
			Key:           t.Key,
			Kind:          kind,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Timestamp:     t.Timestamp.Time,
			Actor:         t.Actor,
			Description:   t.Description,
			Reverses:      reverses,
		})
	}
	return state, nil
}

func removeID(ids []string, id string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
