// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing signed monetary amounts from
// spreadsheet cells into exact decimals.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a spreadsheet cell to a signed decimal.
//
// It accepts a leading sign, accounting negatives in parentheses, currency
// symbols and both decimal separators. When both ',' and '.' are present the
// last one is the decimal separator. A lone comma followed by one or two
// digits is a decimal separator; commas between three-digit groups are
// thousands separators. Any other grouping is rejected.
//
// Examples:
//
//	ParseAmount("1000")       -> 1000
//	ParseAmount("-300.50")    -> -300.5
//	ParseAmount("12,34")      -> 12.34
//	ParseAmount("-1,500")     -> -1500
//	ParseAmount("$1,234.56")  -> 1234.56
//	ParseAmount("1.234,56")   -> 1234.56
//	ParseAmount("(50)")       -> -50
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", " ", "", "\u00a0", "").Replace(s)
	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator
// and no grouping separators remain.
func normalizeSeparators(s string) (string, bool) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma < 0:
		return s, true
	case lastDot < 0:
		if strings.Count(s, ",") == 1 && isDigits(s[lastComma+1:], 1, 2) {
			return s[:lastComma] + "." + s[lastComma+1:], true
		}
		return ungroup(s, ",")
	case lastComma > lastDot:
		frac := s[lastComma+1:]
		whole, ok := ungroup(s[:lastComma], ".")
		return whole + "." + frac, ok && isDigits(frac, 1, len(frac))
	default:
		whole, ok := ungroup(s[:lastDot], ",")
		return whole + s[lastDot:], ok
	}
}

// ungroup removes sep from a thousands-grouped integer such as "-1,234,567".
func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	lead := strings.TrimLeft(groups[0], "+-")
	if len(groups[0])-len(lead) > 1 || !isDigits(lead, 1, 3) {
		return "", false
	}
	for _, g := range groups[1:] {
		if !isDigits(g, 3, 3) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Sum adds the amounts of all transactions.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
