package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

// ExpensesByCategory sums outflows per category and reports the positive
// magnitude of spend. Blank categories are grouped under core.Uncategorized.
// Rows are ordered by spend descending, then by category name.
func ExpensesByCategory(txs []core.Transaction) []core.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, t := range txs {
		if !t.Amount.IsNegative() {
			continue
		}
		key := t.CategoryLabel()
		sums[key] = sums[key].Add(t.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, total := range sums {
		out = append(out, core.CategoryAmount{Category: name, Amount: total.Abs()})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// NetByMerchant sums the signed amount of every transaction per merchant, so a
// merchant with more inflow than outflow has a positive net. Rows are ordered
// ascending by amount: the largest outflows come first.
func NetByMerchant(txs []core.Transaction) []core.MerchantAmount {
	sums := map[string]decimal.Decimal{}
	for _, t := range txs {
		key := t.MerchantLabel()
		sums[key] = sums[key].Add(t.Amount)
	}

	out := make([]core.MerchantAmount, 0, len(sums))
	for name, total := range sums {
		out = append(out, core.MerchantAmount{Merchant: name, Amount: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c < 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}
