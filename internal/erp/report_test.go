package erp

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyFormat(t *testing.T) {
	usd := &Currency{Code: "USD", Symbol: "$"}
	eur := &Currency{Code: "EUR", Symbol: "€", OnRight: 1}

	tests := []struct {
		cur  *Currency
		in   string
		want string
	}{
		{usd, "1234.5", "$1,234.50"},
		{usd, "0", "$0.00"},
		{usd, "999", "$999.00"},
		{usd, "1234567.891", "$1,234,567.89"},
		{usd, "-2832", "-$2,832.00"},
		{eur, "1234.5", "1,234.50 €"},
		{eur, "-5", "-5.00 €"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cur.Format(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestGetCurrency(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Company/Acme Ltd", map[string]string{"default_currency": "MXN"})
	f.data("GET /api/resource/Currency/MXN", map[string]interface{}{"name": "MXN", "symbol": "$", "symbol_on_right": 0})

	cur := c.GetCurrency()
	assert.Equal(t, "MXN", cur.Code)
	assert.Equal(t, "$", cur.Symbol)

	// cached
	c.GetCurrency()
	assert.Equal(t, 1, f.called("GET /api/resource/Company/Acme Ltd"))
}

func TestGetCurrency_FallsBackToDefault(t *testing.T) {
	_, c := newFakeERP(t)

	cur := c.GetCurrency()
	assert.Equal(t, "USD", cur.Code)
	assert.Equal(t, "$1.00", c.FormatCurrency(1))
}

func TestLoadDashboard(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Quotation", []QuotationSummary{
		{Name: "Q1", PartyName: "Acme Corp", GrandTotal: 1000, DocStatus: 1},
		{Name: "Q2", PartyName: "Acme Corp", GrandTotal: 500, DocStatus: 1},
		{Name: "Q3", PartyName: "Globex", GrandTotal: 2000, DocStatus: 1},
		{Name: "Q4", PartyName: "Initech", GrandTotal: 10, DocStatus: 0},
	})
	f.data("GET /api/resource/Sales Order", []SalesOrderSummary{{Name: "SO1", GrandTotal: 300}})
	f.data("GET /api/resource/Bin", []StockLevel{{ItemCode: "LED"}, {ItemCode: "CBL"}})
	f.data("GET /api/resource/Customer", []map[string]string{{"name": "Acme Corp"}, {"name": "Globex"}})
	// Sales Invoice is missing: the dashboard still loads

	data := c.LoadDashboard()

	assert.Equal(t, 1, data.DraftQuotations)
	assert.Equal(t, 3, data.OpenQuotations)
	assert.Equal(t, 3500.0, data.OpenQuotationValue)
	require.Len(t, data.TopCustomers, 2)
	assert.Equal(t, "Globex", data.TopCustomers[0].Name)
	assert.Equal(t, CustomerStat{Name: "Acme Corp", Quotations: 2, Value: 1500}, data.TopCustomers[1])

	assert.Equal(t, 1, data.PendingSOs)
	assert.Equal(t, 300.0, data.PendingSOValue)
	assert.Equal(t, 2, data.LowStockItems)
	assert.Equal(t, 2, data.TotalCustomers)

	assert.Zero(t, data.UnpaidInvoices)
	assert.Equal(t, []string{"Failed to fetch sales invoices"}, data.Errors)
}

func TestLoadDashboard_AllDown(t *testing.T) {
	f, c := newFakeERP(t)
	for _, doctype := range []string{"Quotation", "Sales Order", "Sales Invoice", "Bin", "Customer"} {
		f.handle("GET /api/resource/"+doctype, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}

	data := c.LoadDashboard()
	assert.Len(t, data.Errors, 5)
	assert.Zero(t, data.OpenQuotations)
}
