// Package pricing computes quotation line totals and aggregate totals, and
// validates line items before they are submitted to the ERP.
//
// Everything here is pure: functions never mutate their input and hold no
// state between calls, so the editors can recompute on every keystroke.
package pricing

import "github.com/shopspring/decimal"

// Breakdown is the per-line computation, step by step.
type Breakdown struct {
	Base     decimal.Decimal // quantity × unit price
	Discount decimal.Decimal
	Taxable  decimal.Decimal // base − discount
	Tax      decimal.Decimal
	Total    decimal.Decimal // taxable + tax
}

// Totals aggregates a list of line items.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// percentOf returns amount × (percent / 100). Shift keeps the division exact.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent.Shift(-2))
}

// Price runs the line computation in its fixed order:
// base, discount, taxable, tax, total.
func Price(it LineItem) Breakdown {
	var b Breakdown
	b.Base = it.Quantity.value().Mul(it.UnitPrice.value())
	b.Discount = percentOf(b.Base, it.DiscountPercent.value())
	b.Taxable = b.Base.Sub(b.Discount)
	b.Tax = percentOf(b.Taxable, it.TaxPercent.value())
	b.Total = b.Taxable.Add(b.Tax)
	return b
}

// NetRate is the discounted unit price, the figure ERPNext calls "rate".
// It is zero for a zero quantity.
func (b Breakdown) NetRate(quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return b.Taxable.Div(quantity)
}

// Round returns a copy rounded for display.
func (b Breakdown) Round(places int32) Breakdown {
	return Breakdown{
		Base:     b.Base.Round(places),
		Discount: b.Discount.Round(places),
		Taxable:  b.Taxable.Round(places),
		Tax:      b.Tax.Round(places),
		Total:    b.Total.Round(places),
	}
}

// ComputeLineTotal returns the fully discounted and taxed amount of one line.
func ComputeLineTotal(it LineItem) decimal.Decimal {
	return Price(it).Total
}

// ComputeTotals sums each component across all items independently. The
// grand total is derived from those sums, not from the per-line totals.
func ComputeTotals(items []LineItem) Totals {
	t := Totals{
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
	}
	for _, it := range items {
		b := Price(it)
		t.Subtotal = t.Subtotal.Add(b.Base)
		t.DiscountAmount = t.DiscountAmount.Add(b.Discount)
		t.TaxAmount = t.TaxAmount.Add(b.Tax)
	}
	t.GrandTotal = t.Subtotal.Sub(t.DiscountAmount).Add(t.TaxAmount)
	return t
}

// Round returns a copy rounded for display.
func (t Totals) Round(places int32) Totals {
	return Totals{
		Subtotal:       t.Subtotal.Round(places),
		DiscountAmount: t.DiscountAmount.Round(places),
		TaxAmount:      t.TaxAmount.Round(places),
		GrandTotal:     t.GrandTotal.Round(places),
	}
}
