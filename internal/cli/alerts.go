package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent alerts",
	RunE:  runAlerts,
}

var alertsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark an alert as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsRead,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsReadCmd)

	alertsCmd.Flags().IntP("limit", "l", 20, "Maximum number of alerts to show")
	alertsCmd.Flags().String("user", "", "User id (default from config)")
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	_, eval, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	alerts := eval.Alerts(cmd.Context(), resolveUser(cmd, cfg.Defaults.User), limit)
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tWHEN\tSEVERITY\tTITLE\tMESSAGE\tREAD\n")
	for _, a := range alerts {
		read := ""
		if a.Read {
			read = "read"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, humanize.Time(a.CreatedAt), a.Severity, a.Title, a.Message, read)
	}
	w.Flush()

	return nil
}

func runAlertsRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, eval, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := eval.MarkRead(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Marked alert %s as read\n", args[0])
	return nil
}
