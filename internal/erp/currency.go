package erp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency describes how amounts are printed for the company currency.
type Currency struct {
	Code     string `json:"name"`
	Symbol   string `json:"symbol"`
	OnRight  int    `json:"symbol_on_right"`
	Fraction int    `json:"smallest_currency_fraction_value"`
}

var defaultCurrency = &Currency{Code: "USD", Symbol: "$"}

// GetCurrency resolves the default currency of the company, once.
func (c *Client) GetCurrency() *Currency {
	if c.Currency != nil {
		return c.Currency
	}

	c.Currency = defaultCurrency
	company, err := c.GetCompany()
	if err != nil {
		return c.Currency
	}

	var comp struct {
		DefaultCurrency string `json:"default_currency"`
	}
	if err := c.fetch("GET", "Company/"+url.PathEscape(company), nil, &comp); err != nil || comp.DefaultCurrency == "" {
		return c.Currency
	}

	var cur Currency
	if err := c.fetch("GET", "Currency/"+url.PathEscape(comp.DefaultCurrency), nil, &cur); err != nil {
		c.Currency = &Currency{Code: comp.DefaultCurrency, Symbol: comp.DefaultCurrency + " "}
		return c.Currency
	}
	if cur.Code == "" {
		cur.Code = comp.DefaultCurrency
	}
	if cur.Symbol == "" {
		cur.Symbol = cur.Code + " "
	}
	c.Currency = &cur
	return c.Currency
}

// FormatCurrency formats an amount coming from an ERP document.
func (c *Client) FormatCurrency(amount float64) string {
	return c.FormatAmount(decimal.NewFromFloat(amount))
}

// FormatAmount formats an exact amount with two decimals and thousands
// separators.
func (c *Client) FormatAmount(amount decimal.Decimal) string {
	cur := c.Currency
	if cur == nil {
		cur = defaultCurrency
	}
	return cur.Format(amount)
}

// Format renders amount in this currency.
func (cur *Currency) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	text := groupThousands(amount.StringFixed(2))
	if cur.OnRight == 1 {
		return fmt.Sprintf("%s%s %s", sign, text, strings.TrimSpace(cur.Symbol))
	}
	return sign + cur.Symbol + text
}

func groupThousands(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
