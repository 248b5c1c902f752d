package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

type demoRow struct {
	date     string
	amount   string
	category string
	merchant string
}

var demoLedger = []demoRow{
	{"2024-01-03", "4200", "Sales", "Acme Corp"},
	{"2024-01-05", "-1800", "Rent", "Harbor Properties"},
	{"2024-01-12", "-240.35", "Utilities", "PowerCo"},
	{"2024-01-18", "-610", "Payroll", "Gusto"},
	{"2024-01-26", "1350", "Consulting", "Globex"},
	{"2024-02-02", "3900", "Sales", "Acme Corp"},
	{"2024-02-05", "-1800", "Rent", "Harbor Properties"},
	{"2024-02-11", "-198.10", "Utilities", "PowerCo"},
	{"2024-02-19", "-725.40", "Software", "CloudNine"},
	{"2024-02-23", "-610", "Payroll", "Gusto"},
	{"2024-03-04", "5100", "Sales", "Initech"},
	{"2024-03-05", "-1800", "Rent", "Harbor Properties"},
	{"2024-03-14", "-212.80", "Utilities", "PowerCo"},
	{"2024-03-21", "-430", "Travel", "FlyRight"},
	{"2024-03-28", "-610", "Payroll", "Gusto"},
	{"2024-04-02", "2800", "Sales", "Acme Corp"},
	{"2024-04-05", "-1800", "Rent", "Harbor Properties"},
	{"2024-04-15", "-95", "", ""},
	{"2024-04-22", "-1340", "Equipment", "Quick Supplies"},
}

// Demo returns a small four-month ledger with reference tables, used when no
// seed files are available.
func Demo() core.Dataset {
	balance := decimal.NewFromInt(10000)
	txs := make([]core.Transaction, 0, len(demoLedger))
	for _, r := range demoLedger {
		d, _ := time.Parse("2006-01-02", r.date)
		amt := decimal.RequireFromString(r.amount)
		balance = balance.Add(amt)
		txs = append(txs, core.Transaction{
			Date:           d,
			Amount:         amt,
			Category:       r.category,
			Merchant:       r.merchant,
			AccountBalance: balance,
		})
	}

	month := func(m time.Month) time.Time { return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC) }
	return core.Dataset{
		Transactions: txs,
		Categories: []core.Category{
			{Name: "Sales"}, {Name: "Consulting"}, {Name: "Rent"}, {Name: "Utilities"},
			{Name: "Payroll"}, {Name: "Software"}, {Name: "Travel"},
		},
		Targets: []core.BudgetTarget{
			{Month: month(time.January), RevenueTarget: decimal.NewFromInt(5000)},
			{Month: month(time.February), RevenueTarget: decimal.NewFromInt(5000)},
			{Month: month(time.March), RevenueTarget: decimal.NewFromInt(5500)},
		},
		Rules: []core.MerchantRule{
			{Merchant: "Acme Corp", RiskFlag: "low"},
			{Merchant: "Harbor Properties", RiskFlag: "low"},
			{Merchant: "PowerCo", RiskFlag: "medium"},
			{Merchant: "CloudNine", RiskFlag: "medium"},
			{Merchant: "Quick Supplies", RiskFlag: "high"},
		},
	}
}
