package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/ptrab-engine/auth"
	"github.com/warp/ptrab-engine/config"
)

var (
	flagRole string
	flagTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the review API (uses JWT_SECRET)",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&flagActor, "actor", "", "Reviewer name recorded on approvals")
	tokenCmd.Flags().StringVar(&flagRole, "role", string(auth.RoleReviewer), "reviewer|admin")
	tokenCmd.Flags().DurationVar(&flagTTL, "ttl", 12*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("actor")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	token, err := auth.GenerateToken(flagActor, auth.Role(flagRole), cfg.JWTSecret, flagTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
