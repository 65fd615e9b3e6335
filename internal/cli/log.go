package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record energy usage manually",
	Long:  `Record a single usage entry with energy in kWh. Cost defaults to energy times the configured electricity rate.`,
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().Float64P("energy", "e", 0, "Energy used in kWh")
	logCmd.Flags().Float64P("cost", "c", 0, "Cost (default: energy x electricity rate)")
	logCmd.Flags().StringP("device", "d", "", "Device id the usage belongs to")
	logCmd.Flags().String("at", "", "Timestamp in RFC 3339 format (default: now)")
	logCmd.Flags().String("user", "", "User id (default from config)")
	_ = logCmd.MarkFlagRequired("energy")
}

func runLog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	energy, _ := cmd.Flags().GetFloat64("energy")
	cost, _ := cmd.Flags().GetFloat64("cost")
	deviceID, _ := cmd.Flags().GetString("device")
	at, _ := cmd.Flags().GetString("at")

	if cost == 0 {
		cost = energy * cfg.Thresholds.ElectricityRate
	}

	var timestamp time.Time
	if at != "" {
		timestamp, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
	}

	agg, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := agg.LogUsage(cmd.Context(), resolveUser(cmd, cfg.Defaults.User), deviceID, energy, cost, timestamp)
	if err != nil {
		return fmt.Errorf("log usage: %w", err)
	}

	fmt.Printf("Recorded usage:\n")
	fmt.Printf("  ID:      %s\n", record.ID)
	fmt.Printf("  Energy:  %.2f kWh\n", record.EnergyKWh)
	fmt.Printf("  Cost:    %.2f\n", record.Cost)
	fmt.Printf("  Time:    %s\n", record.Timestamp.Format(time.RFC3339))

	return nil
}
