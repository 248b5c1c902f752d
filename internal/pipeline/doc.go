// Package pipeline derives the monthly, categorical, risk and budget tables of
// a finance report from an immutable core.Dataset.
//
// Every function here is pure: inputs are never mutated, nothing is cached and
// no goroutines are started. Run executes the transforms in dependency order;
// MonthlyFinance is computed once and shared by BudgetVariance and Summarize.
package pipeline
