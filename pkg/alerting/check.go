package alerting

import (
	"context"

	"github.com/wattsonlabs/wattson/pkg/model"
)

// UsageSource provides the aggregates the evaluator consumes.
type UsageSource interface {
	MonthTotal(ctx context.Context, userID string) model.MonthTotal
	DailyUsage(ctx context.Context, userID string, days int) []model.DailyBucket
}

// Checker runs the full evaluation pass for a user: month-to-date cost
// against the budget, and today's energy against the high-usage threshold.
type Checker struct {
	usage UsageSource
	eval  *Evaluator
}

// NewChecker wires an evaluator to its usage source.
func NewChecker(usage UsageSource, eval *Evaluator) *Checker {
	return &Checker{usage: usage, eval: eval}
}

// Run performs both evaluations with the given thresholds.
func (c *Checker) Run(ctx context.Context, userID string, cfg model.ThresholdConfig) {
	total := c.usage.MonthTotal(ctx, userID)
	c.eval.EvaluateBudget(ctx, userID, total.Cost, cfg.MonthlyBudget)

	today := c.usage.DailyUsage(ctx, userID, 0)
	if len(today) > 0 {
		c.eval.EvaluateHighUsage(ctx, userID, today[len(today)-1].EnergyKWh, cfg.HighUsageKWh)
	}
}
