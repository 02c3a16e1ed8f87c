// Command ptrab is the operator CLI: allowance previews, the preparation
// balance, and reviewer token minting.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/ptrab-engine/app"
	"github.com/warp/ptrab-engine/config"
	"github.com/warp/ptrab-engine/logging"
)

var flagQuiet bool

var rootCmd = &cobra.Command{
	Use:          "ptrab",
	Short:        "P Trab allowance calculator and preparation balance",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp loads config from the environment and wires storage. Logs go to
// stderr so command output stays clean.
func openApp(ctx context.Context) (context.Context, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, err
	}
	level := cfg.LogLevel
	if flagQuiet {
		level = "error"
	}
	logger := logging.Init(os.Stderr, "ptrab-cli", level, "development")
	ctx = logging.WithLogger(ctx, logger)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, a, nil
}
