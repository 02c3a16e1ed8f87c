package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/cli"
)

var (
	flagLimit int
	flagActor string
	flagYes   bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or reset the preparation balance",
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the current balance",
	RunE:  runBalance,
}

var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "List recent transactions, oldest first",
	RunE:  runStatement,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the initial balance (open debits stay open)",
	RunE:  runReset,
}

func init() {
	statementCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Maximum transactions to show (0 = all)")
	resetCmd.Flags().StringVar(&flagActor, "actor", "", "Administrator recorded on the reset")
	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm the reset")
	resetCmd.MarkFlagRequired("actor")

	ledgerCmd.AddCommand(balanceCmd, statementCmd, resetCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx, a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.Ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderBalance(state))
	return nil
}

func runStatement(cmd *cobra.Command, _ []string) error {
	if flagLimit < 0 {
		return errors.New("--limit must not be negative")
	}
	ctx, a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	txs, err := a.Ledger.Statement(ctx, flagLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderStatement(txs))
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !flagYes {
		return errors.New("reset restores the initial balance; pass --yes to confirm")
	}
	ctx, a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	balance, err := a.Ledger.Reset(ctx, flagActor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saldo restaurado: %s\n", allowance.FormatBRL(balance))
	return nil
}
