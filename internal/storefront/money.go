package storefront

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MoneyFormat renders integer prices as "{amount with two decimals} {symbol}".
type MoneyFormat struct {
	unit   currency.Unit
	symbol string
}

func NewMoneyFormat(isoCode string) (MoneyFormat, error) {
	u, err := currency.ParseISO(isoCode)
	if err != nil {
		return MoneyFormat{}, fmt.Errorf("currency %q: %w", isoCode, err)
	}
	return MoneyFormat{unit: u, symbol: fmt.Sprint(currency.NarrowSymbol(u))}, nil
}

func (m MoneyFormat) Unit() currency.Unit { return m.unit }

func (m MoneyFormat) Symbol() string { return m.symbol }

func (m MoneyFormat) Format(amount int64) string {
	return decimal.NewFromInt(amount).StringFixed(2) + " " + m.symbol
}
