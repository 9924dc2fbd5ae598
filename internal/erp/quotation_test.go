package erp

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestCreateQuotation(t *testing.T) {
	f, c := newFakeERP(t)
	c.Config.ServiceItem = "SERVICE"
	c.Config.TaxAccount = "VAT - AL"
	f.data("POST /api/resource/Quotation", map[string]string{"name": "SAL-QTN-0001"})

	items := []pricing.LineItem{
		pricing.MakeLineItem("LED panel", "2", "1200", "10", "18"),
		pricing.MakeLineItem("Cable", "3", "5", "", "0"),
	}
	items[1].ItemCode = "CBL-01"

	name, err := c.CreateQuotation("Acme Corp", items)
	require.NoError(t, err)
	assert.Equal(t, "SAL-QTN-0001", name)

	body := f.body("POST /api/resource/Quotation")
	require.NotNil(t, body)
	assert.Equal(t, "Acme Corp", body["party_name"])
	assert.Equal(t, "Customer", body["quotation_to"])
	assert.Equal(t, "Acme Ltd", body["company"])

	rows := body["items"].([]interface{})
	require.Len(t, rows, 2)

	first := rows[0].(map[string]interface{})
	assert.Equal(t, "SERVICE", first["item_code"])
	assert.Equal(t, "LED panel", first["description"])
	assert.Equal(t, 2.0, first["qty"])
	assert.Equal(t, 1200.0, first["price_list_rate"])
	assert.Equal(t, 10.0, first["discount_percentage"])
	assert.Equal(t, 1080.0, first["rate"])
	assert.JSONEq(t, `{"VAT - AL": 18}`, first["item_tax_rate"].(string))

	second := rows[1].(map[string]interface{})
	assert.Equal(t, "CBL-01", second["item_code"])
	assert.Equal(t, 5.0, second["rate"])

	taxes := body["taxes"].([]interface{})
	require.Len(t, taxes, 1)
	assert.Equal(t, "On Net Total", taxes[0].(map[string]interface{})["charge_type"])
	assert.Equal(t, "VAT - AL", taxes[0].(map[string]interface{})["account_head"])
}

func TestCreateQuotation_ValidationErrorIsReturnedWhole(t *testing.T) {
	f, c := newFakeERP(t)

	bad := pricing.MakeLineItem("", "0", "-1", "120", "18")
	_, err := c.CreateQuotation("Acme Corp", []pricing.LineItem{bad})
	require.Error(t, err)

	var verr *pricing.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[pricing.Field]bool{}
	for _, v := range verr.ForItem(bad.ID) {
		fields[v.Field] = true
	}
	assert.True(t, fields[pricing.FieldDescription])
	assert.True(t, fields[pricing.FieldQuantity])
	assert.True(t, fields[pricing.FieldUnitPrice])
	assert.True(t, fields[pricing.FieldDiscountPercent])

	assert.Zero(t, f.called("POST /api/resource/Quotation"))
}

func TestCreateQuotation_Rejects(t *testing.T) {
	_, c := newFakeERP(t)

	_, err := c.CreateQuotation("  ", []pricing.LineItem{pricing.MakeLineItem("x", "1", "1", "", "")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer is required")

	_, err = c.CreateQuotation("Acme Corp", nil)
	assert.ErrorIs(t, err, ErrNoItems)

	// free-text line without ERP_SERVICE_ITEM
	_, err = c.CreateQuotation("Acme Corp", []pricing.LineItem{pricing.MakeLineItem("Install", "1", "500", "", "18")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERP_SERVICE_ITEM")
}

func TestQuotationLines(t *testing.T) {
	_, c := newFakeERP(t)
	c.Config.TaxAccount = "VAT - AL"

	q := &Quotation{
		Items: []QuotationItem{
			{Name: "row1", ItemCode: "LED", Description: "<div><p>LED panel</p></div>", Qty: 2, PriceListRate: 1200, DiscountPercentage: 10, Rate: 1080, ItemTaxRate: `{"VAT - AL": 18}`},
			{Name: "row2", ItemCode: "SVC", ItemName: "Service", Qty: 1, Rate: 500},
		},
		Taxes: []TaxRow{
			{ChargeType: "On Net Total", AccountHead: "VAT - AL", Rate: 5},
			{ChargeType: "Actual", AccountHead: "Freight", TaxAmount: 30},
		},
	}

	lines := c.QuotationLines(q)
	require.Len(t, lines, 2)

	assert.Equal(t, "row1", lines[0].ID)
	assert.Equal(t, "LED panel", lines[0].Description)
	assertAmount(t, "18", lines[0].TaxPercent.Value)
	assertAmount(t, "2548.8", lines[0].LineTotal)

	// no price list rate: the net rate is the price, no discount
	assert.Equal(t, "Service", lines[1].Description)
	assertAmount(t, "500", lines[1].UnitPrice.Value)
	assertAmount(t, "0", lines[1].DiscountPercent.Value)
	assertAmount(t, "5", lines[1].TaxPercent.Value)
	assertAmount(t, "525", lines[1].LineTotal)
}

func TestPreviewConversion(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Quotation/QTN-1", Quotation{
		Name:      "QTN-1",
		PartyName: "Acme Corp",
		DocStatus: 1,
		Items: []QuotationItem{
			{Name: "a", ItemCode: "LED", Qty: 5, Rate: 100},
			{Name: "b", ItemCode: "LED", Qty: 1, Rate: 100},
			{Name: "c", ItemCode: "CBL", Qty: 2, Rate: 10},
		},
	})
	f.handle("GET /api/resource/Bin", func(w http.ResponseWriter, r *http.Request) {
		filters := r.URL.Query().Get("filters")
		switch {
		case strings.Contains(filters, `"LED"`):
			w.Write([]byte(`{"data":[{"warehouse":"Main","actual_qty":3},{"warehouse":"Store","actual_qty":1}]}`))
		case strings.Contains(filters, `"CBL"`):
			w.Write([]byte(`{"data":[{"warehouse":"Main","actual_qty":50}]}`))
		default:
			w.Write([]byte(`{"data":[]}`))
		}
	})

	preview, err := c.PreviewConversion("QTN-1")
	require.NoError(t, err)

	assert.True(t, preview.Submitted())
	assert.True(t, preview.HasShortfall())
	require.Len(t, preview.Lines, 3)

	assertAmount(t, "4", preview.Lines[0].Available)
	assertAmount(t, "1", preview.Lines[0].Shortfall)
	assertAmount(t, "0", preview.Lines[1].Shortfall)
	assertAmount(t, "50", preview.Lines[2].Available)
	assertAmount(t, "0", preview.Lines[2].Shortfall)

	// one Bin lookup per item code
	assert.Equal(t, 2, f.called("GET /api/resource/Bin"))
}

func TestConvertQuotation(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Quotation/QTN-1", Quotation{
		Name:      "QTN-1",
		PartyName: "Acme Corp",
		Company:   "Acme Ltd",
		DocStatus: 1,
		Items:     []QuotationItem{{Name: "qi-1", ItemCode: "LED", Qty: 2, PriceListRate: 1200, DiscountPercentage: 10, Rate: 1080}},
		Taxes:     []TaxRow{{ChargeType: "On Net Total", AccountHead: "VAT - AL", Rate: 18}},
	})
	f.data("POST /api/resource/Sales Order", map[string]string{"name": "SO-0001"})

	name, err := c.ConvertQuotation("QTN-1")
	require.NoError(t, err)
	assert.Equal(t, "SO-0001", name)

	body := f.body("POST /api/resource/Sales Order")
	assert.Equal(t, "Acme Corp", body["customer"])
	rows := body["items"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "QTN-1", row["prevdoc_docname"])
	assert.Equal(t, "qi-1", row["quotation_item"])
	assert.Equal(t, 1080.0, row["rate"])
	assert.Len(t, body["taxes"], 1)
}

func TestConvertQuotation_NotSubmitted(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Quotation/QTN-2", Quotation{Name: "QTN-2", DocStatus: 0, Items: []QuotationItem{{ItemCode: "LED", Qty: 1}}})

	_, err := c.ConvertQuotation("QTN-2")
	assert.ErrorIs(t, err, ErrNotSubmitted)
	assert.Zero(t, f.called("POST /api/resource/Sales Order"))
}

func TestSubmitQuotation(t *testing.T) {
	f, c := newFakeERP(t)
	f.handle("POST /api/method/frappe.client.submit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"name":"QTN-1","docstatus":1}}`))
	})

	require.NoError(t, c.SubmitQuotation("QTN-1"))

	body := f.body("POST /api/method/frappe.client.submit")
	require.NotNil(t, body)
	assert.Equal(t, map[string]interface{}{"doctype": "Quotation", "name": "QTN-1"}, body["doc"])
}

func TestSubmitQuotation_Rejected(t *testing.T) {
	f, c := newFakeERP(t)
	f.handle("POST /api/method/frappe.client.submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusExpectationFailed)
		w.Write([]byte(`{"_server_messages":"[\"{\\\"message\\\": \\\"Cannot edit cancelled document\\\"}\"]"}`))
	})

	err := c.SubmitQuotation("QTN-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit failed")
	assert.Contains(t, err.Error(), "Cannot edit cancelled document")
}

func TestCancelQuotation(t *testing.T) {
	f, c := newFakeERP(t)
	f.handle("POST /api/method/frappe.client.cancel", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":null}`))
	})

	require.NoError(t, c.CancelQuotation("QTN-1"))

	body := f.body("POST /api/method/frappe.client.cancel")
	assert.Equal(t, map[string]interface{}{"doctype": "Quotation", "name": "QTN-1"}, body)
}
