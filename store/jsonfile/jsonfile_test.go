package jsonfile_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ptrab-engine/ledger"
	"github.com/warp/ptrab-engine/store/jsonfile"
)

func newTestStore(t *testing.T) *jsonfile.Store {
	t.Helper()
	s, err := jsonfile.New(filepath.Join(t.TempDir(), "data", "saldo_preparo.json"))
	require.NoError(t, err)
	return s
}

func TestJSONFile_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJSONFile_LedgerRoundTrip(t *testing.T) {
	// GIVEN: A ledger on a JSON file with one debit and one credit
	// WHEN: The ledger is reopened on the same file
	// THEN: Balance and history survive, and the open-debit rule still holds

	s := newTestStore(t)
	ctx := context.Background()

	l, err := ledger.New(ctx, s, ledger.DefaultInitialBalance)
	require.NoError(t, err)
	_, err = l.Debit(ctx, "P Trab Nr 00001/2025", decimal.RequireFromString("10000.00"), "P Trab: 00001/2025 - OP", "maj")
	require.NoError(t, err)
	_, err = l.Debit(ctx, "P Trab Nr 00002/2025", decimal.RequireFromString("2000.00"), "", "maj")
	require.NoError(t, err)
	_, err = l.Credit(ctx, "P Trab Nr 00002/2025", "maj")
	require.NoError(t, err)

	reopened, err := ledger.New(ctx, s, ledger.DefaultInitialBalance)
	require.NoError(t, err)

	balance, err := reopened.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4990000.00", balance.StringFixed(2))

	txs, err := reopened.Statement(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, ledger.KindCredit, txs[2].Kind)
	assert.Equal(t, txs[1].ID, txs[2].Reverses)

	_, err = reopened.Debit(ctx, "P Trab Nr 00001/2025", decimal.RequireFromString("1.00"), "", "maj")
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)
}

func TestJSONFile_DocumentLayout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := ledger.New(ctx, s, decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	_, err = l.Debit(ctx, "K", decimal.RequireFromString("40.00"), "desc", "maj")
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "100", raw["saldo_inicial"])
	assert.Equal(t, "60", raw["saldo_atual"])
	assert.Contains(t, raw, "ultima_atualizacao")

	txs, ok := raw["transacoes"].([]any)
	require.True(t, ok)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	assert.Equal(t, "abatimento", tx["tipo"])
	assert.Equal(t, "K", tx["numero_ptrab"])
	assert.Equal(t, "maj", tx["homologador"])

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJSONFile_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := ledger.New(context.Background(), s, ledger.DefaultInitialBalance)
	assert.ErrorIs(t, err, ledger.ErrPersistence)
}

func TestJSONFile_AcceptsLegacyFile(t *testing.T) {
	// Older files store amounts as JSON numbers and naive local timestamps.
	s := newTestStore(t)
	doc := `{
  "saldo_inicial": 5000000.0,
  "saldo_atual": 4999000.0,
  "transacoes": [
    {"id": "PTRAB_00001/2024", "numero_ptrab": "00001/2024", "tipo": "abatimento", "valor": 1000.0,
     "descricao": "P Trab: 00001/2024 - OP", "homologador": "maj", "data": "2024-05-01T10:00:00.123456",
     "saldo_anterior": 5000000.0, "saldo_posterior": 4999000.0}
  ],
  "ultima_atualizacao": "2024-05-01T10:00:00.123456"
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	state, found, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "4999000.00", state.CurrentBalance.StringFixed(2))
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, ledger.KindDebit, state.Transactions[0].Kind)
	assert.True(t, state.Reconcile().Equal(state.CurrentBalance))

	want := time.Date(2024, time.May, 1, 10, 0, 0, 123456000, time.Local)
	assert.True(t, want.Equal(state.Transactions[0].Timestamp), "got %s", state.Transactions[0].Timestamp)
	assert.True(t, want.Equal(state.UpdatedAt))
}

func TestJSONFile_LegacyCreditClosesDebit(t *testing.T) {
	// GIVEN: A legacy file where a debit was reversed by a credit that does
	//        not name the debit it reverses
	// WHEN: The ledger is opened on it
	// THEN: The debit counts as closed: a second credit fails, the key can
	//       be debited again, and the balance never exceeds the initial value

	s := newTestStore(t)
	doc := `{
  "saldo_inicial": 5000000.0,
  "saldo_atual": 5000000.0,
  "transacoes": [
    {"id": "PTRAB_00001/2024", "numero_ptrab": "00001/2024", "tipo": "abatimento", "valor": 1000.0,
     "descricao": "P Trab: 00001/2024 - OP", "homologador": "maj", "data": "2024-05-01T10:00:00.123456",
     "saldo_anterior": 5000000.0, "saldo_posterior": 4999000.0},
    {"id": "ESTORNO_00001/2024", "numero_ptrab": "00001/2024", "tipo": "estorno", "valor": 1000.0,
     "descricao": "Estorno", "homologador": "maj", "data": "2024-05-02T09:30:00",
     "saldo_anterior": 4999000.0, "saldo_posterior": 5000000.0}
  ],
  "ultima_atualizacao": "2024-05-02T09:30:00"
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))
	ctx := context.Background()

	state, _, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Transactions, 2)
	assert.Equal(t, "PTRAB_00001/2024", state.Transactions[1].Reverses)

	l, err := ledger.New(ctx, s, ledger.DefaultInitialBalance)
	require.NoError(t, err)

	_, err = l.Credit(ctx, "00001/2024", "maj")
	assert.ErrorIs(t, err, ledger.ErrNoMatchingDebit)

	balance, err := l.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5000000.00", balance.StringFixed(2))

	_, err = l.Debit(ctx, "00001/2024", decimal.RequireFromString("500.00"), "", "maj")
	assert.NoError(t, err)
}

func TestJSONFile_TimestampsWrittenAsUTC(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := ledger.New(ctx, s, ledger.DefaultInitialBalance,
		ledger.WithClock(func() time.Time { return time.Date(2025, 3, 10, 14, 30, 0, 0, time.FixedZone("BRT", -3*3600)) }))
	require.NoError(t, err)
	_, err = l.Debit(ctx, "K", decimal.RequireFromString("1.00"), "", "maj")
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data": "2025-03-10T17:30:00Z"`)
}
