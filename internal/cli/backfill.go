package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Regenerate a synthetic 30-day usage history",
	Long: `Regenerate a synthetic usage history for the trailing 30 days from the
registered appliances, replacing whatever the window already holds. With no
appliances registered, a standard appliance set is assumed.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().Float64P("rate", "r", 0, "Electricity rate (default from config)")
	backfillCmd.Flags().String("user", "", "User id (default from config)")
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rate, _ := cmd.Flags().GetFloat64("rate")
	if rate <= 0 {
		rate = cfg.Thresholds.ElectricityRate
	}

	agg, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user := resolveUser(cmd, cfg.Defaults.User)
	devices, err := store.ListDevices(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	if err := agg.Backfill(cmd.Context(), user, devices, rate); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No appliances registered; generated 30 days of history from the standard appliance set.")
	} else {
		fmt.Printf("Generated 30 days of history for %d appliance(s).\n", len(devices))
	}

	return nil
}
