package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

type riskKey struct {
	merchant string
	flag     core.RiskFlag
}

// riskIndex maps merchant names to flags. When a merchant appears in several
// rules the first row wins.
func riskIndex(rules []core.MerchantRule) map[string]core.RiskFlag {
	idx := make(map[string]core.RiskFlag, len(rules))
	for _, r := range rules {
		name := strings.TrimSpace(r.Merchant)
		if _, ok := idx[name]; ok {
			continue
		}
		idx[name] = core.RiskFlag(strings.TrimSpace(string(r.RiskFlag)))
	}
	return idx
}

// RiskBreakdown left-joins every transaction to its merchant's risk flag and
// sums amounts per (merchant, flag). Merchants without a rule keep
// core.RiskUnrated instead of being dropped, so the rows always add up to the
// total of all transaction amounts. Rows are ordered ascending by amount.
func RiskBreakdown(txs []core.Transaction, rules []core.MerchantRule) []core.RiskAmount {
	idx := riskIndex(rules)
	sums := map[riskKey]decimal.Decimal{}
	for _, t := range txs {
		merchant := t.MerchantLabel()
		key := riskKey{merchant: merchant, flag: idx[merchant]}
		sums[key] = sums[key].Add(t.Amount)
	}

	out := make([]core.RiskAmount, 0, len(sums))
	for k, total := range sums {
		out = append(out, core.RiskAmount{Merchant: k.merchant, RiskFlag: k.flag, Amount: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c < 0
		}
		if out[i].Merchant != out[j].Merchant {
			return out[i].Merchant < out[j].Merchant
		}
		return out[i].RiskFlag < out[j].RiskFlag
	})
	return out
}
