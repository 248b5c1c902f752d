package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"finintel/internal/core"
)

// MonthRange is an inclusive month filter; empty bounds are open.
type MonthRange struct {
	From core.MonthBucket
	To   core.MonthBucket
}

// Contains reports whether m falls inside the range.
func (r MonthRange) Contains(m core.MonthBucket) bool {
	if r.From != "" && m < r.From {
		return false
	}
	if r.To != "" && m > r.To {
		return false
	}
	return true
}

// ParseMonthRange reads the optional "from" and "to" query parameters in
// YYYY-MM form.
func ParseMonthRange(r *http.Request) (MonthRange, error) {
	var out MonthRange
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		m, err := core.ParseMonthBucket(v)
		if err != nil {
			return MonthRange{}, fmt.Errorf("from: %w", err)
		}
		out.From = m
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		m, err := core.ParseMonthBucket(v)
		if err != nil {
			return MonthRange{}, fmt.Errorf("to: %w", err)
		}
		out.To = m
	}
	if out.From != "" && out.To != "" && out.From > out.To {
		return MonthRange{}, fmt.Errorf("from %s is after to %s", out.From, out.To)
	}
	return out, nil
}

// ParseBool reads an optional boolean query parameter.
func ParseBool(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	return b, nil
}

// ParseRiskFlag reads the optional "flag" parameter. "unrated" selects rows
// without a merchant rule.
func ParseRiskFlag(r *http.Request) (flag core.RiskFlag, set bool) {
	v := strings.TrimSpace(r.URL.Query().Get("flag"))
	switch v {
	case "":
		return core.RiskUnrated, false
	case "unrated":
		return core.RiskUnrated, true
	}
	return core.RiskFlag(v), true
}
