package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wattsonlabs/wattson/pkg/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show usage summaries",
	Long:  `Show daily usage for a window of days, an hourly breakdown for one day, and the month-to-date total.`,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntP("days", "d", 7, "Window of days for the daily series")
	reportCmd.Flags().Bool("hourly", false, "Show the hourly breakdown for a day")
	reportCmd.Flags().String("date", "", "Day for the hourly breakdown, yyyy-mm-dd (default: today)")
	reportCmd.Flags().String("user", "", "User id (default from config)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	hourly, _ := cmd.Flags().GetBool("hourly")
	dateArg, _ := cmd.Flags().GetString("date")

	agg, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user := resolveUser(cmd, cfg.Defaults.User)
	ctx := cmd.Context()

	if hourly {
		var date time.Time
		if dateArg != "" {
			date, err = time.ParseInLocation(model.DateLayout, dateArg, time.Local)
			if err != nil {
				return fmt.Errorf("parse date: %w", err)
			}
		}

		buckets := agg.HourlyUsage(ctx, user, date)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "HOUR\tENERGY\n")
		for _, b := range buckets {
			fmt.Fprintf(w, "%02d:00\t%.2f kWh\n", b.Hour, b.EnergyKWh)
		}
		w.Flush()
		return nil
	}

	buckets := agg.DailyUsage(ctx, user, days)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tENERGY\tCOST\n")
	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%.2f kWh\t₦%s\n", b.Date, b.EnergyKWh, humanize.CommafWithDigits(b.Cost, 2))
	}
	w.Flush()

	total := agg.MonthTotal(ctx, user)
	fmt.Printf("\nMonth to date: %.2f kWh, ₦%s", total.EnergyKWh, humanize.CommafWithDigits(total.Cost, 2))
	if cfg.Thresholds.MonthlyBudget > 0 {
		pct := total.Cost / cfg.Thresholds.MonthlyBudget * 100
		fmt.Printf(" (%.0f%% of ₦%s budget)", pct, humanize.Commaf(cfg.Thresholds.MonthlyBudget))
	}
	fmt.Println()

	return nil
}
