package pipeline

import (
	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

// BudgetVariance pairs each month's revenue with its target. Targets are keyed
// through core.MonthOf, the same truncation used for transactions; targets that
// land in the same month are summed. Only months present on both sides are
// reported, in the order of the monthly input.
func BudgetVariance(monthly []core.MonthlyFinance, targets []core.BudgetTarget) []core.BudgetVariance {
	byMonth := make(map[core.MonthBucket]decimal.Decimal, len(targets))
	for _, t := range targets {
		key := core.MonthOf(t.Month)
		byMonth[key] = byMonth[key].Add(t.RevenueTarget)
	}

	out := make([]core.BudgetVariance, 0, len(monthly))
	for _, m := range monthly {
		target, ok := byMonth[m.Month]
		if !ok {
			continue
		}
		out = append(out, core.BudgetVariance{
			Month:         m.Month,
			Revenue:       m.Revenue,
			RevenueTarget: target,
		})
	}
	return out
}
