package erp

import (
	"fmt"

	"go.uber.org/zap"
)

// TaxSyncResult is the answer of the tax authority integration for one
// invoice.
type TaxSyncResult struct {
	Invoice   string
	Status    string
	Reference string
	Message   string
}

// SyncInvoiceTax pushes a submitted invoice to the tax authority through the
// whitelisted method configured in ERP_TAX_SYNC_METHOD. The method receives
// {doctype, docname} and may answer with a plain message or with an object
// carrying status, reference and message.
func (c *Client) SyncInvoiceTax(invoiceName string) (*TaxSyncResult, error) {
	if c.Config.TaxSyncMethod == "" {
		return nil, ErrTaxSyncNotConfigured
	}

	si, err := c.GetSalesInvoice(invoiceName)
	if err != nil {
		return nil, err
	}
	if si.DocStatus != 1 {
		return nil, fmt.Errorf("invoice %s: %w", invoiceName, ErrNotSubmitted)
	}

	result, err := c.CallMethod(c.Config.TaxSyncMethod, map[string]interface{}{
		"doctype": "Sales Invoice",
		"docname": si.Name,
	})
	if err != nil {
		c.Logger.Warn("tax sync failed", zap.String("invoice", invoiceName), zap.Error(err))
		return nil, fmt.Errorf("tax sync failed: %w", err)
	}

	res := &TaxSyncResult{Invoice: si.Name}
	switch msg := result["message"].(type) {
	case string:
		res.Message = msg
	case map[string]interface{}:
		res.Status = stringField(msg, "status")
		res.Reference = firstNonEmpty(stringField(msg, "reference"), stringField(msg, "uuid"), stringField(msg, "irn"))
		res.Message = stringField(msg, "message")
	}

	c.Logger.Info("tax sync accepted",
		zap.String("invoice", res.Invoice),
		zap.String("status", res.Status),
		zap.String("reference", res.Reference))
	return res, nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
