package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(t, want).Equal(got), "want %s, got %s", want, got)
}

func TestPrice_SingleLineWithTax(t *testing.T) {
	it := MakeLineItem("Inverter", "2", "1200", "0", "18")

	b := Price(it)
	assertDecimal(t, "2400", b.Base)
	assertDecimal(t, "0", b.Discount)
	assertDecimal(t, "2400", b.Taxable)
	assertDecimal(t, "432", b.Tax)
	assertDecimal(t, "2832", b.Total)
	assertDecimal(t, "2832", it.LineTotal)
}

func TestPrice_DiscountAppliedBeforeTax(t *testing.T) {
	it := MakeLineItem("Cable", "1", "50", "10", "18")

	b := Price(it)
	assertDecimal(t, "50", b.Base)
	assertDecimal(t, "5", b.Discount)
	assertDecimal(t, "45", b.Taxable)
	assertDecimal(t, "8.1", b.Tax)
	assertDecimal(t, "53.1", b.Total)
}

func TestComputeLineTotal_NoDiscountNoTaxIsBase(t *testing.T) {
	cases := [][2]string{
		{"1", "0"},
		{"3", "19.99"},
		{"0.5", "1000"},
		{"250", "0.01"},
	}
	for _, c := range cases {
		it := MakeLineItem("x", c[0], c[1], "0", "0")
		want := dec(t, c[0]).Mul(dec(t, c[1]))
		assert.True(t, want.Equal(ComputeLineTotal(it)), "qty=%s price=%s", c[0], c[1])
	}
}

func TestComputeLineTotal_NonNegativeForNonNegativeInputs(t *testing.T) {
	for _, qty := range []string{"0", "1", "7.5"} {
		for _, price := range []string{"0", "3.3", "1200"} {
			for _, disc := range []string{"0", "12.5", "100"} {
				for _, tax := range []string{"0", "18", "250"} {
					it := MakeLineItem("x", qty, price, disc, tax)
					assert.False(t, ComputeLineTotal(it).IsNegative(),
						"qty=%s price=%s disc=%s tax=%s", qty, price, disc, tax)
				}
			}
		}
	}
}

func TestComputeLineTotal_Idempotent(t *testing.T) {
	it := MakeLineItem("Switch", "3", "17.35", "7", "18")
	first := ComputeLineTotal(it)
	second := ComputeLineTotal(it)
	assert.True(t, first.Equal(second))
}

func TestComputeLineTotal_InvalidNumberCountsAsZero(t *testing.T) {
	it := MakeLineItem("Switch", "abc", "17.35", "0", "18")
	assert.True(t, ComputeLineTotal(it).IsZero())
}

func TestComputeTotals_Empty(t *testing.T) {
	totals := ComputeTotals(nil)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.DiscountAmount.IsZero())
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestComputeTotals_TwoLines(t *testing.T) {
	items := []LineItem{
		MakeLineItem("Inverter", "2", "1200", "0", "18"),
		MakeLineItem("Cable", "1", "50", "10", "18"),
	}

	totals := ComputeTotals(items)
	assertDecimal(t, "2450", totals.Subtotal)
	assertDecimal(t, "5", totals.DiscountAmount)
	assertDecimal(t, "440.1", totals.TaxAmount)
	assertDecimal(t, "2885.1", totals.GrandTotal)
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	items := []LineItem{
		MakeLineItem("a", "2", "1200", "0", "18"),
		MakeLineItem("b", "1", "50", "10", "18"),
		MakeLineItem("c", "3", "9.99", "33.3", "5"),
	}
	reversed := []LineItem{items[2], items[1], items[0]}
	rotated := []LineItem{items[1], items[2], items[0]}

	want := ComputeTotals(items)
	for _, perm := range [][]LineItem{reversed, rotated} {
		got := ComputeTotals(perm)
		assert.True(t, want.Subtotal.Equal(got.Subtotal))
		assert.True(t, want.DiscountAmount.Equal(got.DiscountAmount))
		assert.True(t, want.TaxAmount.Equal(got.TaxAmount))
		assert.True(t, want.GrandTotal.Equal(got.GrandTotal))
	}
}

func TestComputeTotals_DoesNotMutateInput(t *testing.T) {
	items := []LineItem{MakeLineItem("a", "2", "10", "0", "18")}
	before := items[0]

	ComputeTotals(items)
	assert.Equal(t, before.ID, items[0].ID)
	assert.True(t, before.LineTotal.Equal(items[0].LineTotal))
	assert.Equal(t, before.Quantity.Raw, items[0].Quantity.Raw)
}

func TestTotals_Round(t *testing.T) {
	items := []LineItem{MakeLineItem("a", "3", "0.333", "0", "18")}

	rounded := ComputeTotals(items).Round(2)
	assert.Equal(t, "1", rounded.Subtotal.String())
	assert.Equal(t, "0.18", rounded.TaxAmount.String())
	assert.Equal(t, "1.18", rounded.GrandTotal.String())
}

func TestBreakdown_NetRate(t *testing.T) {
	it := MakeLineItem("a", "4", "25", "10", "18")
	b := Price(it)
	assertDecimal(t, "22.5", b.NetRate(it.Quantity.Value))
	assert.True(t, b.NetRate(decimal.Zero).IsZero())
}
