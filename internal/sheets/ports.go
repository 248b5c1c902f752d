package sheets

import (
	"context"

	"finintel/internal/core"
)

// Ports for outbound adapters.
type (
	// DatasetReader loads the four input tables of the finance workbook.
	DatasetReader interface {
		ReadTransactions(ctx context.Context) ([]core.Transaction, error)
		ReadCategories(ctx context.Context) ([]core.Category, error)
		ReadMonthlyTargets(ctx context.Context) ([]core.BudgetTarget, error)
		ReadMerchantRules(ctx context.Context) ([]core.MerchantRule, error)
	}

	// DatasetWriter replaces the stored input tables with a new dataset.
	DatasetWriter interface {
		ImportDataset(ctx context.Context, ds core.Dataset) error
	}
)

// TableNames holds the sheet (or file) name of each input table.
type TableNames struct {
	Transactions string
	Categories   string
	Targets      string
	Rules        string
}

// DefaultTableNames returns the sheet names used by the finance workbook.
func DefaultTableNames() TableNames {
	return TableNames{
		Transactions: TransactionsTable,
		Categories:   CategoriesTable,
		Targets:      TargetsTable,
		Rules:        RulesTable,
	}
}

// WithDefaults fills blank names from DefaultTableNames.
func (n TableNames) WithDefaults() TableNames {
	d := DefaultTableNames()
	if n.Transactions == "" {
		n.Transactions = d.Transactions
	}
	if n.Categories == "" {
		n.Categories = d.Categories
	}
	if n.Targets == "" {
		n.Targets = d.Targets
	}
	if n.Rules == "" {
		n.Rules = d.Rules
	}
	return n
}
