package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/cli"
	"github.com/warp/ptrab-engine/config"
)

var (
	flagStrength  int
	flagDays      int
	flagPeriod    string
	flagMealType  string
	flagMeals     int
	flagMode      string
	flagRations   string
	flagOperation string
	flagMemo      bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute a meal allowance with its breakdown",
	Example: `  ptrab calc --strength 50 --days 45 --type QR --meals 2 --mode EMPLOYMENT
  ptrab calc --strength 10 --period "01/03/2025 A 20/03/2025" --mode PREPARATION`,
	RunE: runCalc,
}

var rationsCmd = &cobra.Command{
	Use:   "rations",
	Short: "Compute the quantity of operational rations",
	RunE:  runRations,
}

func init() {
	calcCmd.Flags().IntVarP(&flagStrength, "strength", "s", 0, "Number of people")
	calcCmd.Flags().IntVarP(&flagDays, "days", "d", 0, "Operation days")
	calcCmd.Flags().StringVar(&flagPeriod, "period", "", `Operation period "dd/mm/yyyy A dd/mm/yyyy" (instead of --days)`)
	calcCmd.Flags().StringVarP(&flagMealType, "type", "t", "QR", "Meal type (QR|QS)")
	calcCmd.Flags().IntVarP(&flagMeals, "meals", "m", 1, "Intermediate meals per day, EMPLOYMENT only (1-3)")
	calcCmd.Flags().StringVar(&flagMode, "mode", string(allowance.ModeEmployment), "EMPLOYMENT|PREPARATION")
	calcCmd.Flags().BoolVar(&flagMemo, "memo", false, "Print the calculation memo instead of a table")
	calcCmd.MarkFlagRequired("strength")

	rationsCmd.Flags().IntVarP(&flagStrength, "strength", "s", 0, "Number of people")
	rationsCmd.Flags().IntVarP(&flagDays, "days", "d", 0, "Operation days")
	rationsCmd.Flags().StringVar(&flagRations, "kind", string(allowance.RationR2), "Ration kind (R2|R3)")
	rationsCmd.Flags().StringVar(&flagOperation, "operation", "", "Operation name for the description")
	rationsCmd.MarkFlagRequired("strength")
	rationsCmd.MarkFlagRequired("days")

	rootCmd.AddCommand(calcCmd, rationsCmd)
}

// calculator uses RATES_FILE when set; the calculator needs no storage.
func calculator() (*allowance.Calculator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rates, err := cfg.Rates()
	if err != nil {
		return nil, err
	}
	return allowance.NewCalculator(rates), nil
}

func runCalc(cmd *cobra.Command, _ []string) error {
	calc, err := calculator()
	if err != nil {
		return err
	}

	days := flagDays
	if flagPeriod != "" {
		p, err := allowance.ParsePeriod(flagPeriod)
		if err != nil {
			return err
		}
		days = p.Days()
	}

	res, err := calc.Compute(allowance.Request{
		Strength: flagStrength,
		Days:     days,
		MealType: allowance.MealType(strings.ToUpper(flagMealType)),
		Meals:    flagMeals,
		Mode:     allowance.Mode(strings.ToUpper(flagMode)),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagMemo {
		fmt.Fprintln(out, res.Text())
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderAllowance(res))
	return nil
}

func runRations(cmd *cobra.Command, _ []string) error {
	calc, err := calculator()
	if err != nil {
		return err
	}

	res, err := calc.Rations(allowance.RationRequest{
		Strength:  flagStrength,
		Days:      flagDays,
		Kind:      allowance.RationKind(strings.ToUpper(flagRations)),
		Operation: flagOperation,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Text())
	if flagOperation != "" {
		fmt.Fprintln(out, res.Description())
	}
	return nil
}
