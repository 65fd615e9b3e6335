// Package alerting decides whether usage totals warrant raising an alert,
// applying tiered thresholds and time-windowed, message-aware suppression
// against the alert history in the store.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/wattsonlabs/wattson/pkg/model"
	"github.com/wattsonlabs/wattson/pkg/notify"
	"github.com/wattsonlabs/wattson/pkg/storage"
)

// Alert titles. Suppression is keyed on (user, title), so these must stay
// stable across releases.
const (
	TitleBudgetExceeded = "Budget Exceeded"
	TitleBudgetAlert    = "Budget Alert"
	TitleHighUsage      = "High Energy Usage"
)

// Re-fire windows per alert tier. A more severe alert may repeat sooner.
const (
	budgetExceededWindow = 1 * time.Hour
	budgetWarningWindow  = 6 * time.Hour
	highUsageWindow      = 3 * time.Hour
)

// Evaluator raises alerts from usage totals. It keeps no in-process state;
// the dedup history lives entirely in the store, so concurrent evaluations
// against the same user may occasionally double-insert.
type Evaluator struct {
	store     storage.Store
	notifiers []notify.Notifier
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator. Notifiers may be nil.
func NewEvaluator(store storage.Store, notifiers []notify.Notifier, logger *slog.Logger) *Evaluator {
	return &Evaluator{store: store, notifiers: notifiers, logger: logger}
}

// EvaluateBudget checks month-to-date cost against the monthly budget and
// raises a tiered alert. A budget of zero or less disables the check.
// Store failures are logged and swallowed; a missed alert must not break
// the caller's refresh flow.
func (e *Evaluator) EvaluateBudget(ctx context.Context, userID string, monthCost, budget float64) {
	if budget <= 0 {
		return
	}

	pct := monthCost / budget * 100

	var (
		title    string
		message  string
		severity model.Severity
		window   time.Duration
	)
	switch {
	case pct >= 100:
		title = TitleBudgetExceeded
		message = fmt.Sprintf("You have exceeded your monthly budget of ₦%s.", humanize.Commaf(budget))
		severity = model.SeverityError
		window = budgetExceededWindow
	case pct >= 80:
		title = TitleBudgetAlert
		message = fmt.Sprintf("You have used %.0f%% of your monthly budget.", pct)
		severity = model.SeverityWarning
		window = budgetWarningWindow
	default:
		return
	}

	e.raise(ctx, userID, title, message, severity, window)
}

// EvaluateHighUsage raises a warning when today's energy exceeds the
// threshold. A threshold of zero or less falls back to the default 20 kWh.
func (e *Evaluator) EvaluateHighUsage(ctx context.Context, userID string, todayKWh, thresholdKWh float64) {
	if thresholdKWh <= 0 {
		thresholdKWh = model.DefaultHighUsageKWh
	}
	if todayKWh <= thresholdKWh {
		return
	}

	message := fmt.Sprintf("Your energy usage today (%.1f kWh) is higher than usual.", todayKWh)
	e.raise(ctx, userID, TitleHighUsage, message, model.SeverityWarning, highUsageWindow)
}

// Alerts returns the user's most recent alerts, newest first. A read
// failure degrades to an empty list.
func (e *Evaluator) Alerts(ctx context.Context, userID string, limit int) []model.Alert {
	alerts, err := e.store.ListAlerts(ctx, userID, limit)
	if err != nil {
		e.logger.Error("list alerts", "user_id", userID, "error", err)
		return nil
	}
	return alerts
}

// MarkRead flips an alert's read flag.
func (e *Evaluator) MarkRead(ctx context.Context, alertID string) error {
	return e.store.MarkAlertRead(ctx, alertID)
}

// raise inserts the alert unless an equivalent one was created inside the
// re-fire window, then fans it out to the notifiers.
func (e *Evaluator) raise(ctx context.Context, userID, title, message string, severity model.Severity, window time.Duration) {
	suppressed, err := e.suppressed(ctx, userID, title, window, message)
	if err != nil {
		e.logger.Error("alert suppression check", "user_id", userID, "title", title, "error", err)
		return
	}
	if suppressed {
		e.logger.Debug("alert suppressed", "user_id", userID, "title", title)
		return
	}

	alert := &model.Alert{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	if err := e.store.InsertAlert(ctx, alert); err != nil {
		e.logger.Error("insert alert", "user_id", userID, "title", title, "error", err)
		return
	}

	e.logger.Warn("alert raised",
		"user_id", userID,
		"title", title,
		"severity", severity,
	)

	for _, n := range e.notifiers {
		if err := n.Send(ctx, *alert); err != nil {
			e.logger.Error("send alert notification",
				"notifier", n.Name(),
				"user_id", userID,
				"title", title,
				"error", err,
			)
		}
	}
}

// suppressed reports whether the most recent alert with this title inside
// the window carries the exact candidate message. A different message is a
// materially new situation and passes through even inside the window. An
// empty candidate degrades to a pure rate limit on the title.
func (e *Evaluator) suppressed(ctx context.Context, userID, title string, window time.Duration, candidate string) (bool, error) {
	last, err := e.store.LatestAlertByTitle(ctx, userID, title, time.Now().Add(-window))
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	if candidate == "" {
		return true, nil
	}
	return last.Message == candidate, nil
}
