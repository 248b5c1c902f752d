package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

// MonthlyFinance groups transactions by calendar month. Months without any
// transaction are absent from the result, which is ordered by month ascending.
func MonthlyFinance(txs []core.Transaction) []core.MonthlyFinance {
	byMonth := make(map[core.MonthBucket]*core.MonthlyFinance)
	for _, t := range txs {
		key := core.MonthOf(t.Date)
		row, ok := byMonth[key]
		if !ok {
			row = &core.MonthlyFinance{
				Month:       key,
				Revenue:     decimal.Zero,
				Expenses:    decimal.Zero,
				NetCashFlow: decimal.Zero,
			}
			byMonth[key] = row
		}
		switch {
		case t.Amount.IsPositive():
			row.Revenue = row.Revenue.Add(t.Amount)
		case t.Amount.IsNegative():
			row.Expenses = row.Expenses.Add(t.Amount)
		}
		row.NetCashFlow = row.NetCashFlow.Add(t.Amount)
		row.TransactionCount++
	}

	out := make([]core.MonthlyFinance, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
