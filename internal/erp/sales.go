package erp

import (
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// SalesOrderSummary is one row of the sales order list.
type SalesOrderSummary struct {
	Name            string  `json:"name"`
	Customer        string  `json:"customer"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	GrandTotal      float64 `json:"grand_total"`
	PerBilled       float64 `json:"per_billed"`
	DocStatus       int     `json:"docstatus"`
}

// SalesOrderItem represents an item in a Sales Order
type SalesOrderItem struct {
	Name               string  `json:"name,omitempty"`
	ItemCode           string  `json:"item_code"`
	Description        string  `json:"description,omitempty"`
	Qty                float64 `json:"qty"`
	PriceListRate      float64 `json:"price_list_rate,omitempty"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	Rate               float64 `json:"rate,omitempty"`
	Amount             float64 `json:"amount,omitempty"`
	ItemTaxRate        string  `json:"item_tax_rate,omitempty"`
	DeliveryDate       string  `json:"delivery_date,omitempty"`
}

// SalesOrder represents an ERPNext Sales Order
type SalesOrder struct {
	Name            string           `json:"name,omitempty"`
	Customer        string           `json:"customer"`
	TransactionDate string           `json:"transaction_date,omitempty"`
	DeliveryDate    string           `json:"delivery_date,omitempty"`
	Company         string           `json:"company,omitempty"`
	Status          string           `json:"status,omitempty"`
	DocStatus       int              `json:"docstatus,omitempty"`
	GrandTotal      float64          `json:"grand_total,omitempty"`
	Items           []SalesOrderItem `json:"items,omitempty"`
	Taxes           []TaxRow         `json:"taxes,omitempty"`
}

// SalesInvoiceSummary is one row of the invoice list.
type SalesInvoiceSummary struct {
	Name              string  `json:"name"`
	Customer          string  `json:"customer"`
	PostingDate       string  `json:"posting_date"`
	Status            string  `json:"status"`
	GrandTotal        float64 `json:"grand_total"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	DocStatus         int     `json:"docstatus"`
}

// SalesInvoiceItem represents an item in a Sales Invoice
type SalesInvoiceItem struct {
	Name        string  `json:"name,omitempty"`
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description,omitempty"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	SalesOrder  string  `json:"sales_order,omitempty"`
	SODetail    string  `json:"so_detail,omitempty"`
}

// SalesInvoice represents an ERPNext Sales Invoice
type SalesInvoice struct {
	Name                 string             `json:"name,omitempty"`
	Customer             string             `json:"customer"`
	PostingDate          string             `json:"posting_date,omitempty"`
	DueDate              string             `json:"due_date,omitempty"`
	Company              string             `json:"company,omitempty"`
	Status               string             `json:"status,omitempty"`
	DocStatus            int                `json:"docstatus,omitempty"`
	NetTotal             float64            `json:"net_total,omitempty"`
	TotalTaxesAndCharges float64            `json:"total_taxes_and_charges,omitempty"`
	GrandTotal           float64            `json:"grand_total,omitempty"`
	OutstandingAmount    float64            `json:"outstanding_amount,omitempty"`
	Items                []SalesInvoiceItem `json:"items,omitempty"`
}

// ListSalesOrders returns sales orders, newest first.
func (c *Client) ListSalesOrders(opts ListOptions) ([]SalesOrderSummary, error) {
	var rows []SalesOrderSummary
	err := c.list(listQuery{
		Doctype: "Sales Order",
		Fields:  []string{"name", "customer", "transaction_date", "status", "grand_total", "per_billed", "docstatus"},
		Filters: opts.filters("customer"),
		OrderBy: "creation desc",
		Limit:   opts.Limit,
	}, &rows)
	return rows, err
}

// GetSalesOrder fetches a sales order with its items.
func (c *Client) GetSalesOrder(name string) (*SalesOrder, error) {
	var so SalesOrder
	if err := c.fetch("GET", "Sales%20Order/"+url.PathEscape(name), nil, &so); err != nil {
		return nil, err
	}
	return &so, nil
}

// SubmitSalesOrder submits a draft sales order.
func (c *Client) SubmitSalesOrder(name string) error {
	return c.submitDocument("Sales Order", name)
}

// CreateInvoiceFromSO creates a draft sales invoice billing every line of a
// submitted sales order. The invoice number is assigned by the ERP.
func (c *Client) CreateInvoiceFromSO(soName string) (string, error) {
	so, err := c.GetSalesOrder(soName)
	if err != nil {
		return "", err
	}
	if so.DocStatus != 1 {
		return "", fmt.Errorf("sales order %s: %w", soName, ErrNotSubmitted)
	}
	if len(so.Items) == 0 {
		return "", fmt.Errorf("sales order %s: %w", soName, ErrNoItems)
	}

	company := so.Company
	if company == "" {
		if company, err = c.GetCompany(); err != nil {
			return "", err
		}
	}

	today := time.Now().Format("2006-01-02")

	var invoiceItems []map[string]interface{}
	for _, it := range so.Items {
		row := map[string]interface{}{
			"item_code":           it.ItemCode,
			"description":         it.Description,
			"qty":                 it.Qty,
			"price_list_rate":     it.PriceListRate,
			"discount_percentage": it.DiscountPercentage,
			"rate":                it.Rate,
			"sales_order":         soName,
			"so_detail":           it.Name,
		}
		if it.ItemTaxRate != "" {
			row["item_tax_rate"] = it.ItemTaxRate
		}
		invoiceItems = append(invoiceItems, row)
	}

	body := map[string]interface{}{
		"customer":     so.Customer,
		"posting_date": today,
		"company":      company,
		"items":        invoiceItems,
	}
	if len(so.Taxes) > 0 {
		body["taxes"] = so.Taxes
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := c.fetch("POST", "Sales%20Invoice", body, &created); err != nil {
		return "", err
	}

	c.Logger.Info("invoice created",
		zap.String("sales_order", soName),
		zap.String("invoice", created.Name))
	return created.Name, nil
}

// ListSalesInvoices returns invoices, newest first.
func (c *Client) ListSalesInvoices(opts ListOptions) ([]SalesInvoiceSummary, error) {
	var rows []SalesInvoiceSummary
	err := c.list(listQuery{
		Doctype: "Sales Invoice",
		Fields:  []string{"name", "customer", "posting_date", "status", "grand_total", "outstanding_amount", "docstatus"},
		Filters: opts.filters("customer"),
		OrderBy: "creation desc",
		Limit:   opts.Limit,
	}, &rows)
	return rows, err
}

// GetSalesInvoice fetches an invoice with its items.
func (c *Client) GetSalesInvoice(name string) (*SalesInvoice, error) {
	var si SalesInvoice
	if err := c.fetch("GET", "Sales%20Invoice/"+url.PathEscape(name), nil, &si); err != nil {
		return nil, err
	}
	return &si, nil
}

// SubmitSalesInvoice submits a draft invoice.
func (c *Client) SubmitSalesInvoice(name string) error {
	return c.submitDocument("Sales Invoice", name)
}

// statusColor picks the terminal color for a document status.
func statusColor(status string) string {
	switch status {
	case "Submitted", "Ordered", "Completed", "Paid", "To Deliver and Bill", "To Bill":
		return Green
	case "Cancelled", "Lost", "Expired", "Overdue":
		return Red
	}
	return Yellow
}

// CmdSO handles Sales Order commands
func (c *Client) CmdSO(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: quotedesk so <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, submit, invoice")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  quotedesk so list")
		fmt.Println("  quotedesk so list --customer=\"Acme\" --status=\"To Bill\"")
		fmt.Println("  quotedesk so get SAL-ORD-2025-00001")
		fmt.Println("  quotedesk so submit SAL-ORD-2025-00001")
		fmt.Println("  quotedesk so invoice SAL-ORD-2025-00001")
		return nil
	}

	switch args[0] {
	case "list":
		return c.soList(parseListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk so get <name>")
		}
		return c.soGet(args[1])
	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk so submit <name>")
		}
		fmt.Printf("%sSubmitting sales order: %s%s\n", Blue, args[1], Reset)
		if err := c.SubmitSalesOrder(args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Sales order submitted: %s%s\n", Green, args[1], Reset)
		return nil
	case "invoice":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk so invoice <name>")
		}
		fmt.Printf("%sCreating invoice from: %s%s\n", Blue, args[1], Reset)
		name, err := c.CreateInvoiceFromSO(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Invoice created: %s%s\n", Green, name, Reset)
		fmt.Printf("  Use 'quotedesk invoice submit %s' to submit it\n", name)
		return nil
	default:
		return fmt.Errorf("unknown so subcommand: %s", args[0])
	}
}

func (c *Client) soList(opts ListOptions) error {
	fmt.Printf("%sFetching sales orders...%s\n", Blue, Reset)

	rows, err := c.ListSalesOrders(opts)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo sales orders found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sSales Orders (%d):%s\n", Cyan, len(rows), Reset)
	for _, so := range rows {
		fmt.Printf("  %s - %s\n", so.Name, so.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Total: %s | Billed: %.0f%%\n",
			so.TransactionDate, statusColor(so.Status), so.Status, Reset, c.FormatCurrency(so.GrandTotal), so.PerBilled)
	}
	return nil
}

func (c *Client) soGet(name string) error {
	fmt.Printf("%sFetching sales order: %s%s\n", Blue, name, Reset)

	so, err := c.GetSalesOrder(name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sSales Order: %s%s\n", Cyan, so.Name, Reset)
	fmt.Printf("  Customer: %s\n", so.Customer)
	fmt.Printf("  Date: %s\n", so.TransactionDate)
	fmt.Printf("  Delivery: %s\n", so.DeliveryDate)
	fmt.Printf("  Status: %s%s%s\n", statusColor(so.Status), so.Status, Reset)
	fmt.Printf("  Total: %s\n", c.FormatCurrency(so.GrandTotal))

	if len(so.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		for _, it := range so.Items {
			fmt.Printf("    - %s: %g x %s = %s\n", it.ItemCode, it.Qty, c.FormatCurrency(it.Rate), c.FormatCurrency(it.Amount))
		}
	}
	return nil
}

// CmdInvoice handles Sales Invoice commands
func (c *Client) CmdInvoice(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: quotedesk invoice <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, submit, tax-sync")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  quotedesk invoice list --status=Unpaid")
		fmt.Println("  quotedesk invoice get ACC-SINV-2025-00001")
		fmt.Println("  quotedesk invoice submit ACC-SINV-2025-00001")
		fmt.Println("  quotedesk invoice tax-sync ACC-SINV-2025-00001")
		return nil
	}

	switch args[0] {
	case "list":
		return c.invoiceList(parseListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk invoice get <name>")
		}
		return c.invoiceGet(args[1])
	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk invoice submit <name>")
		}
		fmt.Printf("%sSubmitting invoice: %s%s\n", Blue, args[1], Reset)
		if err := c.SubmitSalesInvoice(args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Invoice submitted: %s%s\n", Green, args[1], Reset)
		return nil
	case "tax-sync":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk invoice tax-sync <name>")
		}
		fmt.Printf("%sSyncing invoice with tax authority: %s%s\n", Blue, args[1], Reset)
		res, err := c.SyncInvoiceTax(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Tax sync accepted: %s%s\n", Green, res.Invoice, Reset)
		if res.Reference != "" {
			fmt.Printf("  Reference: %s\n", res.Reference)
		}
		if res.Message != "" {
			fmt.Printf("  Message: %s\n", res.Message)
		}
		return nil
	default:
		return fmt.Errorf("unknown invoice subcommand: %s", args[0])
	}
}

func (c *Client) invoiceList(opts ListOptions) error {
	fmt.Printf("%sFetching invoices...%s\n", Blue, Reset)

	rows, err := c.ListSalesInvoices(opts)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo invoices found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sSales Invoices (%d):%s\n", Cyan, len(rows), Reset)
	for _, si := range rows {
		fmt.Printf("  %s - %s\n", si.Name, si.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Total: %s | Outstanding: %s\n",
			si.PostingDate, statusColor(si.Status), si.Status, Reset,
			c.FormatCurrency(si.GrandTotal), c.FormatCurrency(si.OutstandingAmount))
	}
	return nil
}

func (c *Client) invoiceGet(name string) error {
	fmt.Printf("%sFetching invoice: %s%s\n", Blue, name, Reset)

	si, err := c.GetSalesInvoice(name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sSales Invoice: %s%s\n", Cyan, si.Name, Reset)
	fmt.Printf("  Customer: %s\n", si.Customer)
	fmt.Printf("  Date: %s\n", si.PostingDate)
	if si.DueDate != "" {
		fmt.Printf("  Due: %s\n", si.DueDate)
	}
	fmt.Printf("  Status: %s%s%s\n", statusColor(si.Status), si.Status, Reset)
	fmt.Printf("  Net: %s | Tax: %s\n", c.FormatCurrency(si.NetTotal), c.FormatCurrency(si.TotalTaxesAndCharges))
	fmt.Printf("  Total: %s\n", c.FormatCurrency(si.GrandTotal))
	fmt.Printf("  Outstanding: %s\n", c.FormatCurrency(si.OutstandingAmount))

	if len(si.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		for _, it := range si.Items {
			fmt.Printf("    - %s: %g x %s = %s\n", it.ItemCode, it.Qty, c.FormatCurrency(it.Rate), c.FormatCurrency(it.Amount))
		}
	}
	return nil
}
