package pipeline

import "finintel/internal/core"

// Run derives the full report for a dataset. It never fails: empty inputs give
// empty tables and undefined summary scalars.
func Run(ds core.Dataset) core.Report {
	monthly := MonthlyFinance(ds.Transactions)
	return core.Report{
		Monthly:            monthly,
		ExpensesByCategory: ExpensesByCategory(ds.Transactions),
		NetByMerchant:      NetByMerchant(ds.Transactions),
		Risk:               RiskBreakdown(ds.Transactions, ds.Rules),
		Budget:             BudgetVariance(monthly, ds.Targets),
		Balance:            BalanceSeries(ds.Transactions),
		Summary:            Summarize(monthly, ds.Transactions),
		UnknownCategories:  ds.UnknownCategories(),
	}
}
