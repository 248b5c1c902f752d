package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

var hundred = decimal.NewFromInt(100)

// marginPlaces is the precision of the reported profit margin percentage.
const marginPlaces = 4

// Summarize folds the monthly rows into headline totals.
//
// ProfitMargin is left invalid when total revenue is zero. EndingBalance is the
// balance of the chronologically last transaction; txs does not need to be
// sorted, the reducer orders a copy by date itself (stable, so among rows on
// the same date the one appearing later in the input wins).
func Summarize(monthly []core.MonthlyFinance, txs []core.Transaction) core.Summary {
	s := core.Summary{
		TotalRevenue:     decimal.Zero,
		TotalExpenses:    decimal.Zero,
		Months:           len(monthly),
		TransactionCount: len(txs),
	}
	for _, m := range monthly {
		s.TotalRevenue = s.TotalRevenue.Add(m.Revenue)
		s.TotalExpenses = s.TotalExpenses.Add(m.Expenses)
	}
	s.NetProfit = s.TotalRevenue.Add(s.TotalExpenses)
	s.ProfitMargin = profitMargin(s.NetProfit, s.TotalRevenue)

	if last, ok := lastTransaction(txs); ok {
		s.EndingBalance = decimal.NewNullDecimal(last.AccountBalance)
	}
	return s
}

func profitMargin(netProfit, revenue decimal.Decimal) decimal.NullDecimal {
	if revenue.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(netProfit.Div(revenue).Mul(hundred).Round(marginPlaces))
}

func lastTransaction(txs []core.Transaction) (core.Transaction, bool) {
	if len(txs) == 0 {
		return core.Transaction{}, false
	}
	sorted := sortedByDate(txs)
	return sorted[len(sorted)-1], true
}

// sortedByDate returns a copy of txs in ascending date order.
func sortedByDate(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// BalanceSeries returns the account balance after each transaction in date
// order, for balance-over-time charts.
func BalanceSeries(txs []core.Transaction) []core.BalancePoint {
	sorted := sortedByDate(txs)
	out := make([]core.BalancePoint, len(sorted))
	for i, t := range sorted {
		out[i] = core.BalancePoint{Date: t.Date, Balance: t.AccountBalance}
	}
	return out
}
