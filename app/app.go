/*
app.go - Dependency wiring shared by the server and the CLI

PURPOSE:
  Opens storage, builds the ledger, the calculator and the approval
  service from a Config. Both binaries start from here so they always
  see the same balance file and database.

BACKENDS:
  sqlite  Ledger and plans share one SQLite database (DB_PATH).
  json    Ledger lives in a JSON file (LEDGER_FILE); plans and control
          numbers still live in SQLite.

SEE ALSO:
  - config/config.go: Settings
  - cmd/server/main.go, cmd/ptrab/main.go: Callers
*/
package app

import (
	"context"
	"fmt"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/approval"
	"github.com/warp/ptrab-engine/config"
	"github.com/warp/ptrab-engine/ledger"
	"github.com/warp/ptrab-engine/logging"
	"github.com/warp/ptrab-engine/store/jsonfile"
	"github.com/warp/ptrab-engine/store/sqlite"
)

// App holds the wired components.
type App struct {
	DB     *sqlite.Store
	Calc   *allowance.Calculator
	Ledger *ledger.Ledger
	Plans  *approval.Service
}

// Open wires every component. Callers must Close the returned App.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	rates, err := cfg.Rates()
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var ledgerStore ledger.Store = db
	if cfg.LedgerBackend == config.BackendJSON {
		fs, err := jsonfile.New(cfg.LedgerFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open ledger file: %w", err)
		}
		ledgerStore = fs
	}

	l, err := ledger.New(ctx, ledgerStore, cfg.InitialBalance)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	calc := allowance.NewCalculator(rates)
	logging.FromContext(ctx).Info("storage ready",
		"db", cfg.DBPath,
		"ledger_backend", cfg.LedgerBackend,
		"rates_file", cfg.RatesFile,
	)

	return &App{
		DB:     db,
		Calc:   calc,
		Ledger: l,
		Plans:  approval.NewService(db, l, calc),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
