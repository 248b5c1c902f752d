package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finintel/internal/core"
)

// Canonical table names.
const (
	TransactionsTable = "transactions"
	CategoriesTable   = "categories"
	TargetsTable      = "monthly_targets"
	RulesTable        = "merchant_rules"
)

// Column headers expected in each table.
const (
	ColTransactionDate = "transaction_date"
	ColAmount          = "amount"
	ColCategory        = "category"
	ColMerchant        = "merchant"
	ColAccountBalance  = "account_balance"
	ColMonth           = "month"
	ColRevenueTarget   = "revenue_target"
	ColRiskFlag        = "risk_flag"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
}

// Excel serials outside this range are not treated as dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

// ParseDate accepts ISO dates, US slash dates and Excel serial numbers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// header maps lower-cased column names to their index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := h[key]; !ok {
			h[key] = i
		}
	}
	return h
}

// require returns a MissingColumnError naming every absent column.
func (h header) require(table string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &core.MissingColumnError{Table: table, Columns: missing}
	}
	return nil
}

func (h header) get(row []string, col string) string {
	idx, ok := h[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// body splits a table into its header and non-blank data rows. The returned
// row numbers are 1-based and count the header row, matching spreadsheet rows.
func body(table string, rows [][]string, cols ...string) (header, [][]string, []int, error) {
	if len(rows) == 0 {
		return nil, nil, nil, &core.MissingColumnError{Table: table, Columns: cols}
	}
	h := newHeader(rows[0])
	if err := h.require(table, cols...); err != nil {
		return nil, nil, nil, err
	}
	var out [][]string
	var lines []int
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, row)
		lines = append(lines, i+2)
	}
	return h, out, lines, nil
}

// ParseTransactions converts a raw table with a header row to transactions.
func ParseTransactions(rows [][]string) ([]core.Transaction, error) {
	h, data, lines, err := body(TransactionsTable, rows,
		ColTransactionDate, ColAmount, ColCategory, ColMerchant, ColAccountBalance)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(data))
	for i, row := range data {
		date, err := ParseDate(h.get(row, ColTransactionDate))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", TransactionsTable, lines[i], err)
		}
		amount, err := core.ParseAmount(h.get(row, ColAmount))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: amount: %w", TransactionsTable, lines[i], err)
		}
		balance, err := core.ParseAmount(h.get(row, ColAccountBalance))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: account_balance: %w", TransactionsTable, lines[i], err)
		}
		out = append(out, core.Transaction{
			Date:           date,
			Amount:         amount,
			Category:       h.get(row, ColCategory),
			Merchant:       h.get(row, ColMerchant),
			AccountBalance: balance,
		})
	}
	return out, nil
}

// ParseCategories converts a raw table to categories, dropping blank and
// duplicate names.
func ParseCategories(rows [][]string) ([]core.Category, error) {
	h, data, _, err := body(CategoriesTable, rows, ColCategory)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(data))
	for _, row := range data {
		name := h.get(row, ColCategory)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, core.Category{Name: name})
	}
	return out, nil
}

// ParseMonthlyTargets converts a raw table to budget targets.
func ParseMonthlyTargets(rows [][]string) ([]core.BudgetTarget, error) {
	h, data, lines, err := body(TargetsTable, rows, ColMonth, ColRevenueTarget)
	if err != nil {
		return nil, err
	}
	out := make([]core.BudgetTarget, 0, len(data))
	for i, row := range data {
		month, err := parseMonth(h.get(row, ColMonth))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", TargetsTable, lines[i], err)
		}
		target, err := core.ParseAmount(h.get(row, ColRevenueTarget))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: revenue_target: %w", TargetsTable, lines[i], err)
		}
		out = append(out, core.BudgetTarget{Month: month, RevenueTarget: target})
	}
	return out, nil
}

// parseMonth accepts any date inside the month or a bare "YYYY-MM" label.
func parseMonth(s string) (time.Time, error) {
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	m, err := core.ParseMonthBucket(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return m.Start(), nil
}

// ParseMerchantRules converts a raw table to merchant rules. A blank risk flag
// leaves the merchant unrated.
func ParseMerchantRules(rows [][]string) ([]core.MerchantRule, error) {
	h, data, lines, err := body(RulesTable, rows, ColMerchant, ColRiskFlag)
	if err != nil {
		return nil, err
	}
	out := make([]core.MerchantRule, 0, len(data))
	for i, row := range data {
		r := core.MerchantRule{
			Merchant: h.get(row, ColMerchant),
			RiskFlag: core.RiskFlag(h.get(row, ColRiskFlag)),
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", RulesTable, lines[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}
