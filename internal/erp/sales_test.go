package erp

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoiceFromSO(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Sales Order/SO-0001", SalesOrder{
		Name:      "SO-0001",
		Customer:  "Acme Corp",
		DocStatus: 1,
		Items: []SalesOrderItem{
			{Name: "soi-1", ItemCode: "LED", Qty: 2, PriceListRate: 1200, DiscountPercentage: 10, Rate: 1080, ItemTaxRate: `{"VAT - AL": 18}`},
		},
	})
	f.data("POST /api/resource/Sales Invoice", map[string]string{"name": "SINV-0001"})

	name, err := c.CreateInvoiceFromSO("SO-0001")
	require.NoError(t, err)
	assert.Equal(t, "SINV-0001", name)

	body := f.body("POST /api/resource/Sales Invoice")
	assert.Equal(t, "Acme Corp", body["customer"])
	// company falls back to the configured one
	assert.Equal(t, "Acme Ltd", body["company"])

	rows := body["items"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "SO-0001", row["sales_order"])
	assert.Equal(t, "soi-1", row["so_detail"])
	assert.Equal(t, `{"VAT - AL": 18}`, row["item_tax_rate"])
}

func TestCreateInvoiceFromSO_Draft(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Sales Order/SO-0002", SalesOrder{Name: "SO-0002", Customer: "Acme Corp"})

	_, err := c.CreateInvoiceFromSO("SO-0002")
	assert.ErrorIs(t, err, ErrNotSubmitted)
	assert.Zero(t, f.called("POST /api/resource/Sales Invoice"))
}

func TestSyncInvoiceTax_NotConfigured(t *testing.T) {
	f, c := newFakeERP(t)

	_, err := c.SyncInvoiceTax("SINV-0001")
	assert.ErrorIs(t, err, ErrTaxSyncNotConfigured)
	assert.Zero(t, f.called("GET /api/resource/Sales Invoice/SINV-0001"))
}

func TestSyncInvoiceTax(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		status    string
		reference string
		message   string
	}{
		{"object", `{"message":{"status":"accepted","uuid":"6F1A-22","message":"stamped"}}`, "accepted", "6F1A-22", "stamped"},
		{"plain text", `{"message":"queued"}`, "", "", "queued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeERP(t)
			c.Config.TaxSyncMethod = "tax_bridge.api.sync_invoice"
			f.data("GET /api/resource/Sales Invoice/SINV-0001", SalesInvoice{Name: "SINV-0001", Customer: "Acme Corp", DocStatus: 1})
			f.handle("POST /api/method/tax_bridge.api.sync_invoice", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.response))
			})

			res, err := c.SyncInvoiceTax("SINV-0001")
			require.NoError(t, err)
			assert.Equal(t, "SINV-0001", res.Invoice)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.reference, res.Reference)
			assert.Equal(t, tt.message, res.Message)

			body := f.body("POST /api/method/tax_bridge.api.sync_invoice")
			assert.Equal(t, "Sales Invoice", body["doctype"])
			assert.Equal(t, "SINV-0001", body["docname"])
		})
	}
}

func TestSyncInvoiceTax_Rejected(t *testing.T) {
	f, c := newFakeERP(t)
	c.Config.TaxSyncMethod = "tax_bridge.api.sync_invoice"
	f.data("GET /api/resource/Sales Invoice/SINV-0001", SalesInvoice{Name: "SINV-0001", DocStatus: 1})
	f.handle("POST /api/method/tax_bridge.api.sync_invoice", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusExpectationFailed)
		w.Write([]byte(`{"exc_type":"ValidationError","_server_messages":"[\"{\\\"message\\\": \\\"RFC not registered\\\"}\"]"}`))
	})

	_, err := c.SyncInvoiceTax("SINV-0001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC not registered")
}

func TestSyncInvoiceTax_Draft(t *testing.T) {
	f, c := newFakeERP(t)
	c.Config.TaxSyncMethod = "tax_bridge.api.sync_invoice"
	f.data("GET /api/resource/Sales Invoice/SINV-0002", SalesInvoice{Name: "SINV-0002"})

	_, err := c.SyncInvoiceTax("SINV-0002")
	assert.ErrorIs(t, err, ErrNotSubmitted)
	assert.Zero(t, f.called("POST /api/method/tax_bridge.api.sync_invoice"))
}
