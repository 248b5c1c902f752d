package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date time.Time, amount, category, merchant, balance string) core.Transaction {
	return core.Transaction{
		Date:           date,
		Amount:         dec(amount),
		Category:       category,
		Merchant:       merchant,
		AccountBalance: dec(balance),
	}
}

// scenario is the three-row ledger used across the property tests.
func scenario() []core.Transaction {
	return []core.Transaction{
		tx(day(2024, 1, 5), "1000", "Sales", "Acme", "1000"),
		tx(day(2024, 1, 20), "-300", "Rent", "Landlord", "700"),
		tx(day(2024, 2, 10), "-50", "Utilities", "PowerCo", "650"),
	}
}
