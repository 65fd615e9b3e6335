package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wattsonlabs/wattson/internal/config"
	"github.com/wattsonlabs/wattson/pkg/aggregate"
	"github.com/wattsonlabs/wattson/pkg/alerting"
	"github.com/wattsonlabs/wattson/pkg/model"
	"github.com/wattsonlabs/wattson/pkg/notify"
	"github.com/wattsonlabs/wattson/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wattson",
	Short: "Wattson - Household energy tracking and budget alerts",
	Long: `Wattson tracks the energy your household appliances consume, rolls raw
usage into daily, hourly, and month-to-date summaries, and raises alerts
when spending approaches your budget or daily usage spikes.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.wattson/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore creates a storage backend from config.
func initStore(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotifiers creates alert notifiers from config. MQTT connection
// failures are logged rather than fatal so alert evaluation still runs.
func initNotifiers(cfg *config.Config, logger *slog.Logger) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.MQTT.Enabled && cfg.Alerts.MQTT.Broker != "" {
		n, err := notify.NewMQTTNotifier(
			cfg.Alerts.MQTT.Broker,
			cfg.Alerts.MQTT.Username,
			cfg.Alerts.MQTT.Password,
			cfg.Alerts.MQTT.TopicPrefix,
		)
		if err != nil {
			logger.Error("connect mqtt notifier", "broker", cfg.Alerts.MQTT.Broker, "error", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}

	return notifiers
}

// thresholds extracts the alerting thresholds from config.
func thresholds(cfg *config.Config) model.ThresholdConfig {
	return model.ThresholdConfig{
		MonthlyBudget:   cfg.Thresholds.MonthlyBudget,
		ElectricityRate: cfg.Thresholds.ElectricityRate,
		HighUsageKWh:    cfg.Thresholds.HighUsageKWh,
	}
}

// initEngine creates the fully wired aggregator, evaluator, and checker.
func initEngine(cfg *config.Config) (*aggregate.Aggregator, *alerting.Evaluator, *alerting.Checker, storage.Store, error) {
	logger := newLogger(cfg)

	store, err := initStore(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	notifiers := initNotifiers(cfg, logger)
	agg := aggregate.New(store, logger)
	eval := alerting.NewEvaluator(store, notifiers, logger)
	checker := alerting.NewChecker(agg, eval)

	return agg, eval, checker, store, nil
}
