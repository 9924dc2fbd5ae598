package erp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// QuotationSummary is one row of the quotation list.
type QuotationSummary struct {
	Name            string  `json:"name"`
	PartyName       string  `json:"party_name"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	GrandTotal      float64 `json:"grand_total"`
	DocStatus       int     `json:"docstatus"`
}

// QuotationItem represents an item in a Quotation
type QuotationItem struct {
	Name               string  `json:"name,omitempty"`
	ItemCode           string  `json:"item_code"`
	ItemName           string  `json:"item_name,omitempty"`
	Description        string  `json:"description,omitempty"`
	Qty                float64 `json:"qty"`
	PriceListRate      float64 `json:"price_list_rate,omitempty"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	Rate               float64 `json:"rate,omitempty"`
	Amount             float64 `json:"amount,omitempty"`
	ItemTaxRate        string  `json:"item_tax_rate,omitempty"`
}

// TaxRow is a line of the taxes table shared by sales documents.
type TaxRow struct {
	ChargeType  string  `json:"charge_type"`
	AccountHead string  `json:"account_head"`
	Description string  `json:"description,omitempty"`
	Rate        float64 `json:"rate"`
	TaxAmount   float64 `json:"tax_amount,omitempty"`
}

// Quotation represents an ERPNext Quotation
type Quotation struct {
	Name                 string          `json:"name,omitempty"`
	PartyName            string          `json:"party_name"`
	QuotationTo          string          `json:"quotation_to"`
	TransactionDate      string          `json:"transaction_date,omitempty"`
	ValidTill            string          `json:"valid_till,omitempty"`
	Company              string          `json:"company,omitempty"`
	Status               string          `json:"status,omitempty"`
	DocStatus            int             `json:"docstatus,omitempty"`
	NetTotal             float64         `json:"net_total,omitempty"`
	TotalTaxesAndCharges float64         `json:"total_taxes_and_charges,omitempty"`
	GrandTotal           float64         `json:"grand_total,omitempty"`
	Items                []QuotationItem `json:"items,omitempty"`
	Taxes                []TaxRow        `json:"taxes,omitempty"`
}

// ListOptions filters document lists.
type ListOptions struct {
	Customer string
	Status   string
	Limit    int
}

func parseListOptions(args []string) ListOptions {
	opts := ListOptions{}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--customer=") {
			opts.Customer = strings.TrimPrefix(arg, "--customer=")
		}
		if strings.HasPrefix(arg, "--status=") {
			opts.Status = strings.TrimPrefix(arg, "--status=")
		}
	}
	return opts
}

func (o ListOptions) filters(partyField string) [][]interface{} {
	filters := [][]interface{}{}
	if o.Customer != "" {
		filters = append(filters, []interface{}{partyField, "like", fmt.Sprintf("%%%s%%", o.Customer)})
	}
	if o.Status != "" {
		filters = append(filters, []interface{}{"status", "=", o.Status})
	}
	return filters
}

// ListQuotations returns quotations, newest first.
func (c *Client) ListQuotations(opts ListOptions) ([]QuotationSummary, error) {
	var rows []QuotationSummary
	err := c.list(listQuery{
		Doctype: "Quotation",
		Fields:  []string{"name", "party_name", "transaction_date", "status", "grand_total", "docstatus"},
		Filters: opts.filters("party_name"),
		OrderBy: "creation desc",
		Limit:   opts.Limit,
	}, &rows)
	return rows, err
}

// GetQuotation fetches a quotation with its items and taxes.
func (c *Client) GetQuotation(name string) (*Quotation, error) {
	var q Quotation
	if err := c.fetch("GET", "Quotation/"+url.PathEscape(name), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// QuotationLines turns the items of an ERP quotation into line items the
// calculator understands. The tax percent is the item tax rate for the
// configured account when present, otherwise the sum of the "On Net Total"
// rows of the document.
func (c *Client) QuotationLines(q *Quotation) []pricing.LineItem {
	docTax := decimal.Zero
	for _, t := range q.Taxes {
		if t.ChargeType == "On Net Total" {
			docTax = docTax.Add(decimal.NewFromFloat(t.Rate))
		}
	}

	lines := make([]pricing.LineItem, 0, len(q.Items))
	for _, qi := range q.Items {
		it := pricing.NewLineItem()
		if qi.Name != "" {
			it.ID = qi.Name
		}
		it.ItemCode = qi.ItemCode
		it.Description = firstNonEmpty(stripHTML(qi.Description), qi.ItemName, qi.ItemCode)
		it.Quantity = pricing.NumberFromFloat(qi.Qty)

		price := qi.PriceListRate
		discount := qi.DiscountPercentage
		if price == 0 {
			price = qi.Rate
			discount = 0
		}
		it.UnitPrice = pricing.NumberFromFloat(price)
		it.DiscountPercent = pricing.NumberFromFloat(discount)

		tax := docTax
		if rate, ok := itemTaxRate(qi.ItemTaxRate, c.Config.TaxAccount); ok {
			tax = rate
		}
		it.TaxPercent = pricing.NumberOf(tax)

		lines = append(lines, it.Recalculate())
	}
	return lines
}

func itemTaxRate(raw, account string) (decimal.Decimal, bool) {
	if raw == "" || account == "" {
		return decimal.Zero, false
	}
	var rates map[string]float64
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return decimal.Zero, false
	}
	rate, ok := rates[account]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(rate), true
}

// CreateQuotation validates items and creates a draft quotation for
// customer. A *pricing.ValidationError is returned as is so callers can
// show every violation.
func (c *Client) CreateQuotation(customer string, items []pricing.LineItem) (string, error) {
	if strings.TrimSpace(customer) == "" {
		return "", fmt.Errorf("customer is required")
	}
	if len(items) == 0 {
		return "", fmt.Errorf("cannot create quotation: %w", ErrNoItems)
	}
	if err := pricing.Validate(items); err != nil {
		return "", err
	}

	company, err := c.GetCompany()
	if err != nil {
		return "", err
	}

	var qtnItems []map[string]interface{}
	for i, it := range items {
		itemCode := strings.TrimSpace(it.ItemCode)
		if itemCode == "" {
			itemCode = c.Config.ServiceItem
		}
		if itemCode == "" {
			return "", fmt.Errorf("line %d (%s): no item code and ERP_SERVICE_ITEM is not set", i+1, it.Description)
		}

		b := pricing.Price(it)
		row := map[string]interface{}{
			"item_code":           itemCode,
			"description":         it.Description,
			"qty":                 it.Quantity.Value.InexactFloat64(),
			"price_list_rate":     it.UnitPrice.Value.InexactFloat64(),
			"discount_percentage": it.DiscountPercent.Value.InexactFloat64(),
			"rate":                b.NetRate(it.Quantity.Value).InexactFloat64(),
		}
		if c.Config.TaxAccount != "" {
			rates, _ := json.Marshal(map[string]float64{c.Config.TaxAccount: it.TaxPercent.Value.InexactFloat64()})
			row["item_tax_rate"] = string(rates)
		}
		qtnItems = append(qtnItems, row)
	}

	now := time.Now()
	body := map[string]interface{}{
		"quotation_to":     "Customer",
		"party_name":       customer,
		"transaction_date": now.Format("2006-01-02"),
		"valid_till":       now.AddDate(0, 0, 30).Format("2006-01-02"),
		"company":          company,
		"items":            qtnItems,
	}
	if c.Config.TaxAccount != "" {
		body["taxes"] = []TaxRow{{
			ChargeType:  "On Net Total",
			AccountHead: c.Config.TaxAccount,
			Description: "Tax",
		}}
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := c.fetch("POST", "Quotation", body, &created); err != nil {
		return "", err
	}

	totals := pricing.ComputeTotals(items)
	c.Logger.Info("quotation created",
		zap.String("name", created.Name),
		zap.String("customer", customer),
		zap.Int("items", len(items)),
		zap.String("grand_total", totals.GrandTotal.StringFixed(2)))

	return created.Name, nil
}

// SubmitQuotation submits a draft quotation.
func (c *Client) SubmitQuotation(name string) error {
	return c.submitDocument("Quotation", name)
}

// CancelQuotation cancels a submitted quotation.
func (c *Client) CancelQuotation(name string) error {
	return c.cancelDocument("Quotation", name)
}

// ConversionLine is one quotation line checked against stock.
type ConversionLine struct {
	Item      pricing.LineItem
	Breakdown pricing.Breakdown
	Available decimal.Decimal
	Shortfall decimal.Decimal
}

// ConversionPreview is what a sales order created from a quotation would
// contain.
type ConversionPreview struct {
	Quotation *Quotation
	Lines     []ConversionLine
	Totals    pricing.Totals
}

// Submitted reports whether the quotation can be converted.
func (p *ConversionPreview) Submitted() bool {
	return p.Quotation.DocStatus == 1
}

// HasShortfall reports whether any line needs more than is in stock.
func (p *ConversionPreview) HasShortfall() bool {
	for _, l := range p.Lines {
		if l.Shortfall.IsPositive() {
			return true
		}
	}
	return false
}

// PreviewConversion prices every line of a quotation and looks up the stock
// available for it.
func (c *Client) PreviewConversion(qtnName string) (*ConversionPreview, error) {
	q, err := c.GetQuotation(qtnName)
	if err != nil {
		return nil, err
	}

	lines := c.QuotationLines(q)
	preview := &ConversionPreview{Quotation: q, Totals: pricing.ComputeTotals(lines)}

	stock := map[string]decimal.Decimal{}
	for _, it := range lines {
		available, ok := stock[it.ItemCode]
		if !ok {
			available, err = c.AvailableQty(it.ItemCode)
			if err != nil {
				return nil, fmt.Errorf("stock for %s: %w", it.ItemCode, err)
			}
			stock[it.ItemCode] = available
		}

		shortfall := it.Quantity.Value.Sub(available)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		preview.Lines = append(preview.Lines, ConversionLine{
			Item:      it,
			Breakdown: pricing.Price(it),
			Available: available,
			Shortfall: shortfall,
		})
	}
	return preview, nil
}

// ConvertQuotation creates a draft sales order from a submitted quotation.
func (c *Client) ConvertQuotation(qtnName string) (string, error) {
	q, err := c.GetQuotation(qtnName)
	if err != nil {
		return "", err
	}
	if q.DocStatus != 1 {
		return "", fmt.Errorf("quotation %s: %w", qtnName, ErrNotSubmitted)
	}
	if len(q.Items) == 0 {
		return "", fmt.Errorf("quotation %s: %w", qtnName, ErrNoItems)
	}

	company := q.Company
	if company == "" {
		if company, err = c.GetCompany(); err != nil {
			return "", err
		}
	}

	today := time.Now().Format("2006-01-02")

	var soItems []map[string]interface{}
	for _, qi := range q.Items {
		row := map[string]interface{}{
			"item_code":           qi.ItemCode,
			"description":         qi.Description,
			"qty":                 qi.Qty,
			"price_list_rate":     qi.PriceListRate,
			"discount_percentage": qi.DiscountPercentage,
			"rate":                qi.Rate,
			"delivery_date":       today,
			"prevdoc_docname":     qtnName,
			"quotation_item":      qi.Name,
		}
		if qi.ItemTaxRate != "" {
			row["item_tax_rate"] = qi.ItemTaxRate
		}
		soItems = append(soItems, row)
	}

	body := map[string]interface{}{
		"customer":         q.PartyName,
		"transaction_date": today,
		"delivery_date":    today,
		"company":          company,
		"items":            soItems,
	}
	if len(q.Taxes) > 0 {
		body["taxes"] = q.Taxes
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := c.fetch("POST", "Sales%20Order", body, &created); err != nil {
		return "", err
	}

	c.Logger.Info("quotation converted",
		zap.String("quotation", qtnName),
		zap.String("sales_order", created.Name))
	return created.Name, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// stripHTML drops the markup ERPNext wraps text editor fields in.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
