package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finintel/internal/core"
)

func scenarioDataset() core.Dataset {
	return core.Dataset{
		Transactions: scenario(),
		Categories:   []core.Category{{Name: "Sales"}, {Name: "Rent"}},
		Targets:      []core.BudgetTarget{{Month: day(2024, 1, 1), RevenueTarget: dec("1200")}},
		Rules: []core.MerchantRule{
			{Merchant: "Acme", RiskFlag: "low"},
			{Merchant: "Landlord", RiskFlag: "recurring"},
		},
	}
}

func TestRun_Idempotent(t *testing.T) {
	ds := scenarioDataset()
	first, err := json.Marshal(Run(ds))
	require.NoError(t, err)
	second, err := json.Marshal(Run(ds))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestRun_PowerCoNullFlag(t *testing.T) {
	report := Run(scenarioDataset())

	var found bool
	for _, r := range report.Risk {
		if r.Merchant == "PowerCo" {
			found = true
			assert.Equal(t, core.RiskUnrated, r.RiskFlag)
			assert.True(t, r.Amount.Equal(dec("-50")))
		}
	}
	assert.True(t, found, "PowerCo must appear in the risk breakdown")

	b, err := json.Marshal(report.Risk)
	require.NoError(t, err)
	assert.Contains(t, string(b), `{"merchant":"PowerCo","risk_flag":null,"amount":"-50"}`)
}

func TestRun_Assembly(t *testing.T) {
	report := Run(scenarioDataset())

	assert.Len(t, report.Monthly, 2)
	assert.Len(t, report.Budget, 1)
	assert.Len(t, report.Balance, 3)
	assert.Equal(t, []string{"Utilities"}, report.UnknownCategories)
	assert.True(t, report.Summary.NetProfit.Equal(dec("650")))
	assert.Len(t, report.MonthsBelowTarget(), 1)
	assert.Empty(t, report.Fingerprint)
}

func TestRun_EmptyDataset(t *testing.T) {
	report := Run(core.Dataset{})
	assert.Empty(t, report.Monthly)
	assert.Empty(t, report.ExpensesByCategory)
	assert.Empty(t, report.NetByMerchant)
	assert.Empty(t, report.Risk)
	assert.Empty(t, report.Budget)
	assert.False(t, report.Summary.ProfitMargin.Valid)
	assert.False(t, report.Summary.EndingBalance.Valid)
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	ds := scenarioDataset()
	ds.Transactions = []core.Transaction{ds.Transactions[2], ds.Transactions[0], ds.Transactions[1]}
	Run(ds)
	assert.Equal(t, "PowerCo", ds.Transactions[0].Merchant)
}
