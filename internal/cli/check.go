package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate budget and high-usage alerts now",
	Long: `Run the alert evaluation pass: month-to-date cost against the monthly
budget, and today's energy against the high-usage threshold. Alerts repeated
inside their re-fire window are suppressed.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Float64P("budget", "b", 0, "Monthly budget (default from config)")
	checkCmd.Flags().Float64("high-usage", 0, "High-usage threshold in kWh (default from config)")
	checkCmd.Flags().String("user", "", "User id (default from config)")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, eval, checker, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	th := thresholds(cfg)
	if budget, _ := cmd.Flags().GetFloat64("budget"); budget > 0 {
		th.MonthlyBudget = budget
	}
	if high, _ := cmd.Flags().GetFloat64("high-usage"); high > 0 {
		th.HighUsageKWh = high
	}

	user := resolveUser(cmd, cfg.Defaults.User)
	checker.Run(cmd.Context(), user, th)

	alerts := eval.Alerts(cmd.Context(), user, 5)
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	fmt.Println("Most recent alerts:")
	for _, a := range alerts {
		fmt.Printf("  [%s] %s: %s\n", a.Severity, a.Title, a.Message)
	}

	return nil
}
