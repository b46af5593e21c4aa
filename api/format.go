package api

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Formatter renders decimal amounts for display in one currency. The ledger
// itself is currency-agnostic; the currency only affects presentation.
type Formatter struct {
	currency money.Currency
}

// NewFormatter returns a formatter for an ISO 4217 code. Unknown codes fall
// back to USD.
func NewFormatter(code string) Formatter {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	return Formatter{currency: *cur}
}

func (f Formatter) Code() string { return f.currency.Code }

// Format rounds to the currency's minor unit and renders it with the
// currency's grapheme and separators, e.g. "$2,500.00".
func (f Formatter) Format(amount decimal.Decimal) string {
	minor := amount.Round(int32(f.currency.Fraction)).Shift(int32(f.currency.Fraction))
	return f.currency.Formatter().Format(minor.IntPart())
}
