package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RiskFlag is a merchant risk tier from the merchant rules table. The zero
// value means the merchant has no rule and is serialized as JSON null.
type RiskFlag string

const RiskUnrated RiskFlag = ""

func (f RiskFlag) Rated() bool {
	return f != RiskUnrated
}

func (f RiskFlag) MarshalJSON() ([]byte, error) {
	if !f.Rated() {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

func (f *RiskFlag) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = RiskUnrated
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = RiskFlag(s)
	return nil
}

// MonthlyFinance aggregates one month bucket. Expenses is negative and
// NetCashFlow always equals Revenue + Expenses.
type MonthlyFinance struct {
	Month            MonthBucket     `json:"month"`
	Revenue          decimal.Decimal `json:"revenue"`
	Expenses         decimal.Decimal `json:"expenses"`
	NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
	TransactionCount int             `json:"transaction_count"`
}

// ExpenseMagnitude is the positive size of the month's outflows, used for
// revenue vs expense trend lines.
func (m MonthlyFinance) ExpenseMagnitude() decimal.Decimal {
	return m.Expenses.Neg()
}

// CategoryAmount is the positive spend for one expense category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MerchantAmount is the signed net amount for one merchant.
type MerchantAmount struct {
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
}

// RiskAmount is the signed net amount for a (merchant, risk flag) pair.
type RiskAmount struct {
	Merchant string          `json:"merchant"`
	RiskFlag RiskFlag        `json:"risk_flag"`
	Amount   decimal.Decimal `json:"amount"`
}

// BudgetVariance places actual revenue next to its target for one month.
type BudgetVariance struct {
	Month         MonthBucket     `json:"month"`
	Revenue       decimal.Decimal `json:"revenue"`
	RevenueTarget decimal.Decimal `json:"revenue_target"`
}

// Delta is actual minus target; negative means the month missed its target.
func (b BudgetVariance) Delta() decimal.Decimal {
	return b.Revenue.Sub(b.RevenueTarget)
}

// Attainment is revenue as a percentage of target, undefined for a zero target.
func (b BudgetVariance) Attainment() decimal.NullDecimal {
	if b.RevenueTarget.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(b.Revenue.Div(b.RevenueTarget).Mul(hundred).Round(4))
}

// BalancePoint is one sample of the account balance series.
type BalancePoint struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// Summary holds the headline scalars. ProfitMargin is invalid when total
// revenue is zero; EndingBalance is invalid when there are no transactions.
type Summary struct {
	TotalRevenue     decimal.Decimal     `json:"total_revenue"`
	TotalExpenses    decimal.Decimal     `json:"total_expenses"`
	NetProfit        decimal.Decimal     `json:"net_profit"`
	ProfitMargin     decimal.NullDecimal `json:"profit_margin"`
	EndingBalance    decimal.NullDecimal `json:"ending_balance"`
	Months           int                 `json:"months"`
	TransactionCount int                 `json:"transaction_count"`
}

// Report bundles every derived table produced by one pipeline run.
type Report struct {
	Fingerprint        string           `json:"fingerprint,omitempty"`
	Monthly            []MonthlyFinance `json:"monthly"`
	ExpensesByCategory []CategoryAmount `json:"expenses_by_category"`
	NetByMerchant      []MerchantAmount `json:"net_by_merchant"`
	Risk               []RiskAmount     `json:"risk"`
	Budget             []BudgetVariance `json:"budget"`
	Balance            []BalancePoint   `json:"balance"`
	Summary            Summary          `json:"summary"`
	UnknownCategories  []string         `json:"unknown_categories,omitempty"`
}

// MonthsBelowTarget returns the budget rows whose revenue missed the target.
func (r Report) MonthsBelowTarget() []BudgetVariance {
	var out []BudgetVariance
	for _, b := range r.Budget {
		if b.Delta().IsNegative() {
			out = append(out, b)
		}
	}
	return out
}
