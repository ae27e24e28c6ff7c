package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney reads a monetary value that may arrive as loosely formatted
// text ("$1,250.00", " 12 ", ""). Anything unparseable counts as zero.
func ParseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
