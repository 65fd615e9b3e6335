package alerting_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattsonlabs/wattson/pkg/aggregate"
	"github.com/wattsonlabs/wattson/pkg/alerting"
	"github.com/wattsonlabs/wattson/pkg/model"
	"github.com/wattsonlabs/wattson/pkg/notify"
	"github.com/wattsonlabs/wattson/pkg/storage"
)

func newTestEvaluator(t *testing.T, notifiers []notify.Notifier) (*alerting.Evaluator, *storage.SQLite) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return alerting.NewEvaluator(store, notifiers, logger), store
}

func userAlerts(t *testing.T, store *storage.SQLite, userID string) []model.Alert {
	t.Helper()
	alerts, err := store.ListAlerts(context.Background(), userID, 0)
	require.NoError(t, err)
	return alerts
}

func TestEvaluateBudget_Exceeded(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 100, 100)

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.TitleBudgetExceeded, alerts[0].Title)
	assert.Equal(t, model.SeverityError, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "₦100")
}

func TestEvaluateBudget_RepeatSuppressed(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	eval.EvaluateBudget(ctx, "user-1", 100, 100)

	assert.Len(t, userAlerts(t, store, "user-1"), 1)
}

func TestEvaluateBudget_NewBudgetBypassesSuppression(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	// Budget raised to 120: now at 83%, a different title and message
	eval.EvaluateBudget(ctx, "user-1", 100, 120)

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 2)
	titles := []string{alerts[0].Title, alerts[1].Title}
	assert.Contains(t, titles, alerting.TitleBudgetExceeded)
	assert.Contains(t, titles, alerting.TitleBudgetAlert)
}

func TestEvaluateBudget_ChangedAmountBypassesSuppression(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	// Both exceed, but the embedded budget amount differs
	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	eval.EvaluateBudget(ctx, "user-1", 100, 90)

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 2)
	assert.NotEqual(t, alerts[0].Message, alerts[1].Message)
}

func TestEvaluateBudget_WarningTier(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 80, 100)

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.TitleBudgetAlert, alerts[0].Title)
	assert.Equal(t, model.SeverityWarning, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "80%")
}

func TestEvaluateBudget_UnderThreshold(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	eval.EvaluateBudget(context.Background(), "user-1", 50, 100)
	assert.Empty(t, userAlerts(t, store, "user-1"))
}

func TestEvaluateBudget_NoBudget(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	eval.EvaluateBudget(context.Background(), "user-1", 500, 0)
	assert.Empty(t, userAlerts(t, store, "user-1"))
}

func TestEvaluateBudget_RefiresAfterWindow(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	// Seed an identical alert created beyond the 1-hour re-fire window
	require.NoError(t, store.InsertAlert(ctx, &model.Alert{
		UserID:    "user-1",
		Title:     alerting.TitleBudgetExceeded,
		Message:   "You have exceeded your monthly budget of ₦100.",
		Severity:  model.SeverityError,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))

	eval.EvaluateBudget(ctx, "user-1", 100, 100)

	assert.Len(t, userAlerts(t, store, "user-1"), 2)
}

func TestEvaluateHighUsage(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateHighUsage(ctx, "user-1", 25, 20)

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.TitleHighUsage, alerts[0].Title)
	assert.Equal(t, model.SeverityWarning, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "25.0")
}

func TestEvaluateHighUsage_RepeatSuppressedNewFigurePasses(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateHighUsage(ctx, "user-1", 25, 20)
	eval.EvaluateHighUsage(ctx, "user-1", 25, 20)
	assert.Len(t, userAlerts(t, store, "user-1"), 1)

	// A different figure is a materially new situation
	eval.EvaluateHighUsage(ctx, "user-1", 30, 20)
	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 2)
	messages := alerts[0].Message + " " + alerts[1].Message
	assert.Contains(t, messages, "25.0")
	assert.Contains(t, messages, "30.0")
}

func TestEvaluateHighUsage_UnderThreshold(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	eval.EvaluateHighUsage(context.Background(), "user-1", 15, 20)
	assert.Empty(t, userAlerts(t, store, "user-1"))
}

func TestEvaluateHighUsage_DefaultThreshold(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateHighUsage(ctx, "user-1", 19, 0)
	assert.Empty(t, userAlerts(t, store, "user-1"))

	eval.EvaluateHighUsage(ctx, "user-1", 21, 0)
	assert.Len(t, userAlerts(t, store, "user-1"), 1)
}

func TestEvaluator_NotifierFanOut(t *testing.T) {
	var sent int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sent++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifiers := []notify.Notifier{notify.NewWebhookNotifier(server.URL, "")}
	eval, _ := newTestEvaluator(t, notifiers)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	assert.Equal(t, 1, sent)

	// Suppressed evaluation must not notify
	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	assert.Equal(t, 1, sent)
}

func TestEvaluator_StoreFailureAbortsQuietly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)

	var sent int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sent++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	eval := alerting.NewEvaluator(store, []notify.Notifier{notify.NewWebhookNotifier(server.URL, "")}, logger)
	ctx := context.Background()

	require.NoError(t, store.Close())

	eval.EvaluateBudget(ctx, "user-1", 100, 100)
	eval.EvaluateHighUsage(ctx, "user-1", 25, 20)
	assert.Zero(t, sent, "a failed evaluation must not notify")

	assert.Nil(t, eval.Alerts(ctx, "user-1", 10))

	// Nothing may have been written before the failure was noticed
	reopened, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	alerts, err := reopened.ListAlerts(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluator_AlertsAndMarkRead(t *testing.T) {
	eval, _ := newTestEvaluator(t, nil)
	ctx := context.Background()

	eval.EvaluateBudget(ctx, "user-1", 100, 100)

	alerts := eval.Alerts(ctx, "user-1", 10)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Read)

	require.NoError(t, eval.MarkRead(ctx, alerts[0].ID))
	alerts = eval.Alerts(ctx, "user-1", 10)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Read)
}

func TestChecker_Run(t *testing.T) {
	eval, store := newTestEvaluator(t, nil)
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	agg := aggregate.New(store, logger)

	// Month-to-date cost of 100 and 25 kWh logged today
	require.NoError(t, store.InsertUsage(ctx, &model.UsageRecord{
		UserID: "user-1", EnergyKWh: 25, Cost: 100, Timestamp: time.Now(),
	}))

	checker := alerting.NewChecker(agg, eval)
	checker.Run(ctx, "user-1", model.ThresholdConfig{
		MonthlyBudget: 100,
		HighUsageKWh:  20,
	})

	alerts := userAlerts(t, store, "user-1")
	require.Len(t, alerts, 2)
	titles := []string{alerts[0].Title, alerts[1].Title}
	assert.Contains(t, titles, alerting.TitleBudgetExceeded)
	assert.Contains(t, titles, alerting.TitleHighUsage)
}
