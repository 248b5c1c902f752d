package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finintel/internal/core"
)

func TestRiskBreakdown_UnratedMerchantKept(t *testing.T) {
	rules := []core.MerchantRule{
		{Merchant: "Acme", RiskFlag: "low"},
		{Merchant: "Landlord", RiskFlag: "recurring"},
	}
	got := RiskBreakdown(scenario(), rules)
	require.Len(t, got, 3)

	assert.Equal(t, "Landlord", got[0].Merchant)
	assert.Equal(t, core.RiskFlag("recurring"), got[0].RiskFlag)

	assert.Equal(t, "PowerCo", got[1].Merchant)
	assert.Equal(t, core.RiskUnrated, got[1].RiskFlag)
	assert.True(t, got[1].Amount.Equal(dec("-50")))

	assert.Equal(t, "Acme", got[2].Merchant)
	assert.Equal(t, core.RiskFlag("low"), got[2].RiskFlag)
}

func TestRiskBreakdown_Conservation(t *testing.T) {
	txs := append(scenario(),
		tx(day(2024, 3, 1), "-0.1", "Fees", "Bank", "0"),
		tx(day(2024, 3, 2), "-0.2", "Fees", "Bank", "0"),
		tx(day(2024, 3, 3), "0.3", "Refund", "Shop", "0"),
		tx(day(2024, 3, 4), "-17.77", "", "", "0"),
	)
	rules := []core.MerchantRule{{Merchant: "Bank", RiskFlag: "medium"}}

	rows := RiskBreakdown(txs, rules)
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	assert.True(t, total.Equal(core.Sum(txs)), "rows %s != transactions %s", total, core.Sum(txs))
}

func TestRiskBreakdown_NoRules(t *testing.T) {
	got := RiskBreakdown(scenario(), nil)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.False(t, r.RiskFlag.Rated())
	}
}

func TestRiskBreakdown_DuplicateRuleFirstWins(t *testing.T) {
	rules := []core.MerchantRule{
		{Merchant: "PowerCo", RiskFlag: "high"},
		{Merchant: "PowerCo", RiskFlag: "low"},
	}
	got := RiskBreakdown(scenario()[2:], rules)
	require.Len(t, got, 1)
	assert.Equal(t, core.RiskFlag("high"), got[0].RiskFlag)
}
