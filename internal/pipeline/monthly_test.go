package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finintel/internal/core"
)

func TestMonthlyFinance_Scenario(t *testing.T) {
	got := MonthlyFinance(scenario())
	require.Len(t, got, 2)

	assert.Equal(t, core.MonthBucket("2024-01"), got[0].Month)
	assert.True(t, got[0].Revenue.Equal(dec("1000")))
	assert.True(t, got[0].Expenses.Equal(dec("-300")))
	assert.True(t, got[0].NetCashFlow.Equal(dec("700")))
	assert.Equal(t, 2, got[0].TransactionCount)

	assert.Equal(t, core.MonthBucket("2024-02"), got[1].Month)
	assert.True(t, got[1].Revenue.IsZero())
	assert.True(t, got[1].Expenses.Equal(dec("-50")))
	assert.True(t, got[1].NetCashFlow.Equal(dec("-50")))
}

func TestMonthlyFinance_NetEqualsRevenuePlusExpenses(t *testing.T) {
	txs := []core.Transaction{
		tx(day(2023, 11, 3), "12.34", "Sales", "A", "0"),
		tx(day(2023, 11, 4), "-0.01", "Fees", "B", "0"),
		tx(day(2023, 12, 31), "0", "Other", "C", "0"),
		tx(day(2024, 3, 1), "-99.99", "Rent", "D", "0"),
		tx(day(2024, 3, 2), "100.005", "Sales", "A", "0"),
	}
	for _, m := range MonthlyFinance(txs) {
		assert.Truef(t, m.NetCashFlow.Equal(m.Revenue.Add(m.Expenses)),
			"month %s: net %s != %s + %s", m.Month, m.NetCashFlow, m.Revenue, m.Expenses)
	}
}

func TestMonthlyFinance_SortedAndSparse(t *testing.T) {
	txs := []core.Transaction{
		tx(day(2024, 5, 1), "1", "", "", "0"),
		tx(day(2023, 12, 1), "1", "", "", "0"),
		tx(day(2024, 1, 15), "1", "", "", "0"),
	}
	got := MonthlyFinance(txs)
	months := make([]core.MonthBucket, len(got))
	for i, m := range got {
		months[i] = m.Month
	}
	assert.Equal(t, []core.MonthBucket{"2023-12", "2024-01", "2024-05"}, months)
}

func TestMonthlyFinance_TimeOfDayIgnored(t *testing.T) {
	txs := []core.Transaction{
		{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Amount: dec("1")},
		{Date: time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC), Amount: dec("2")},
	}
	got := MonthlyFinance(txs)
	require.Len(t, got, 1)
	assert.True(t, got[0].Revenue.Equal(dec("3")))
}

func TestMonthlyFinance_Empty(t *testing.T) {
	got := MonthlyFinance(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
