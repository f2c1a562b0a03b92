package postgres

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(19,4). They are read as ::text and parsed here so no
// float conversion ever touches an amount.
const moneyScale = 4

func numericToDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty numeric string")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func decimalToNumeric(d decimal.Decimal) string {
	return d.StringFixed(moneyScale)
}
