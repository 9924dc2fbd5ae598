package erp

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
	"github.com/mikelcalvo/quotedesk/internal/quotepdf"
)

const listLimit = 100

// loadQuotations fetches the latest quotations
func (m Model) loadQuotations() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.client.ListQuotations(ListOptions{Limit: listLimit})
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, q := range rows {
			detail := fmt.Sprintf("%s | %s | %s", q.PartyName, renderStatusBadge(q.Status), m.client.FormatCurrency(q.GrandTotal))
			items = append(items, ListItem{name: q.Name, details: detail, date: q.TransactionDate, amount: q.GrandTotal, status: q.Status})
		}
		return dataLoadedMsg{items}
	}
}

// loadQuotationDetail fetches quotation detail
func (m Model) loadQuotationDetail(name string) tea.Cmd {
	return func() tea.Msg {
		q, err := m.client.GetQuotation(name)
		if err != nil {
			return errorMsg{err}
		}
		return quotationLoadedMsg{q}
	}
}

// renderQuotationDetail renders the quotation with the calculator breakdown
func (m Model) renderQuotationDetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	q := m.quotation
	if q == nil {
		return "\n  No data"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Quotation: "+q.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", q.PartyName))
	b.WriteString(fmt.Sprintf("  Date: %s\n", q.TransactionDate))
	b.WriteString(fmt.Sprintf("  Valid Till: %s\n", q.ValidTill))
	b.WriteString(fmt.Sprintf("  Status: %s\n", renderStatusBadge(q.Status)))

	lines := m.client.QuotationLines(q)
	if len(lines) > 0 {
		b.WriteString(fmt.Sprintf("\n  %s\n", selectedStyle.Render("Items:")))
		for _, it := range lines {
			b.WriteString(fmt.Sprintf("    - %s %s: %s x %s, disc %s%%, tax %s%% = %s\n",
				it.ItemCode, truncate(it.Description, 30), it.Quantity.Raw,
				m.client.FormatAmount(it.UnitPrice.Value), it.DiscountPercent.Raw, it.TaxPercent.Raw,
				m.client.FormatAmount(it.LineTotal.Round(2))))
		}
	}

	b.WriteString(m.renderTotals(pricing.ComputeTotals(lines)))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  ERP grand total: %s", m.client.FormatCurrency(q.GrandTotal))))

	return boxStyle.Render(b.String())
}

func (m Model) renderTotals(t pricing.Totals) string {
	t = t.Round(2)
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Subtotal:     %s\n", m.client.FormatAmount(t.Subtotal)))
	b.WriteString(fmt.Sprintf("  Discount:     -%s\n", m.client.FormatAmount(t.DiscountAmount)))
	b.WriteString(fmt.Sprintf("  Tax:          %s\n", m.client.FormatAmount(t.TaxAmount)))
	b.WriteString(successStyle.Render(fmt.Sprintf("  Grand Total:  %s", m.client.FormatAmount(t.GrandTotal))) + "\n")
	return b.String()
}

// loadPreview prices a quotation and checks its stock
func (m Model) loadPreview(name string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.client.PreviewConversion(name)
		if err != nil {
			return errorMsg{err}
		}
		return previewLoadedMsg{p}
	}
}

// renderConversion shows what the sales order will contain
func (m Model) renderConversion() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Checking stock...", m.spinner.View())
	}
	p := m.preview
	if p == nil {
		return "\n  No data"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Convert "+p.Quotation.Name+" to Sales Order ") + "\n\n")
	b.WriteString(fmt.Sprintf("  Customer: %s\n\n", p.Quotation.PartyName))

	b.WriteString(helpStyle.Render(fmt.Sprintf("  %-14s %-26s %8s %14s %10s", "Item", "Description", "Qty", "Line Total", "In Stock")) + "\n")
	for _, l := range p.Lines {
		stock := successStyle.Render(fmt.Sprintf("%10s", l.Available.String()))
		if l.Shortfall.IsPositive() {
			stock = errorStyle.Render(fmt.Sprintf("%10s  short %s", l.Available.String(), l.Shortfall.String()))
		}
		b.WriteString(fmt.Sprintf("  %-14s %-26s %8s %14s %s\n",
			truncate(l.Item.ItemCode, 14), truncate(l.Item.Description, 23), l.Item.Quantity.Raw,
			m.client.FormatAmount(l.Breakdown.Total.Round(2)), stock))
	}

	b.WriteString(m.renderTotals(p.Totals))

	if !p.Submitted() {
		b.WriteString("\n" + internetStyle.Render("  Quotation is not submitted. Submit it before converting.") + "\n")
	}
	if p.HasShortfall() {
		b.WriteString("\n" + internetStyle.Render("  Some lines are not fully in stock.") + "\n")
	}

	return boxStyle.Render(b.String())
}

// submitQuotation submits a quotation
func (m Model) submitQuotation(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.SubmitQuotation(name); err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("Quotation submitted: %s", name)}
	}
}

// cancelQuotation cancels a quotation
func (m Model) cancelQuotation(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.CancelQuotation(name); err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("Quotation cancelled: %s", name)}
	}
}

// convertQuotation creates the sales order and opens it
func (m Model) convertQuotation(name string) tea.Cmd {
	return func() tea.Msg {
		soName, err := m.client.ConvertQuotation(name)
		if err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return docCreatedMsg{
			message: fmt.Sprintf("SO created: %s (from %s)", soName, name),
			view:    ViewSODetail,
			name:    soName,
		}
	}
}

// exportPDF writes the quotation PDF to the working directory
func (m Model) exportPDF(q *Quotation) tea.Cmd {
	return func() tea.Msg {
		doc := quotepdf.Document{
			Number:   q.Name,
			Customer: q.PartyName,
			Company:  q.Company,
			Brand:    m.client.Config.Brand,
			Items:    m.client.QuotationLines(q),
			Format:   m.client.FormatAmount,
		}
		if d, err := time.Parse("2006-01-02", q.TransactionDate); err == nil {
			doc.Date = d
		}
		if d, err := time.Parse("2006-01-02", q.ValidTill); err == nil {
			doc.ValidTill = d
		}

		data, err := quotepdf.New().Generate(doc)
		if err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		out := q.Name + ".pdf"
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("PDF written: %s", out)}
	}
}

// loadSalesOrders fetches the latest sales orders
func (m Model) loadSalesOrders() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.client.ListSalesOrders(ListOptions{Limit: listLimit})
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, so := range rows {
			detail := fmt.Sprintf("%s | %s | %s | billed %.0f%%", so.Customer, renderStatusBadge(so.Status), m.client.FormatCurrency(so.GrandTotal), so.PerBilled)
			items = append(items, ListItem{name: so.Name, details: detail, date: so.TransactionDate, amount: so.GrandTotal, status: so.Status})
		}
		return dataLoadedMsg{items}
	}
}

// loadSODetail fetches sales order detail
func (m Model) loadSODetail(name string) tea.Cmd {
	return func() tea.Msg {
		so, err := m.client.GetSalesOrder(name)
		if err != nil {
			return errorMsg{err}
		}
		return salesOrderLoadedMsg{so}
	}
}

// renderSODetail renders the sales order detail view
func (m Model) renderSODetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	so := m.salesOrder
	if so == nil {
		return "\n  No data"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Sales Order: "+so.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", so.Customer))
	b.WriteString(fmt.Sprintf("  Date: %s\n", so.TransactionDate))
	b.WriteString(fmt.Sprintf("  Delivery: %s\n", so.DeliveryDate))
	b.WriteString(fmt.Sprintf("  Status: %s\n", renderStatusBadge(so.Status)))
	b.WriteString(fmt.Sprintf("  Total: %s\n", m.client.FormatCurrency(so.GrandTotal)))

	if len(so.Items) > 0 {
		b.WriteString(fmt.Sprintf("\n  %s\n", selectedStyle.Render("Items:")))
		for _, it := range so.Items {
			b.WriteString(fmt.Sprintf("    - %s: %g x %s = %s\n", it.ItemCode, it.Qty, m.client.FormatCurrency(it.Rate), m.client.FormatCurrency(it.Amount)))
		}
	}

	return boxStyle.Render(b.String())
}

// submitSO submits a sales order
func (m Model) submitSO(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.SubmitSalesOrder(name); err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("SO submitted: %s", name)}
	}
}

// createInvoice bills a sales order and opens the invoice
func (m Model) createInvoice(soName string) tea.Cmd {
	return func() tea.Msg {
		name, err := m.client.CreateInvoiceFromSO(soName)
		if err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return docCreatedMsg{
			message: fmt.Sprintf("Invoice created: %s", name),
			view:    ViewSIDetail,
			name:    name,
		}
	}
}

// loadSalesInvoices fetches the latest invoices
func (m Model) loadSalesInvoices() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.client.ListSalesInvoices(ListOptions{Limit: listLimit})
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, si := range rows {
			detail := fmt.Sprintf("%s | %s | %s | due %s", si.Customer, renderStatusBadge(si.Status), m.client.FormatCurrency(si.GrandTotal), m.client.FormatCurrency(si.OutstandingAmount))
			items = append(items, ListItem{name: si.Name, details: detail, date: si.PostingDate, amount: si.GrandTotal, status: si.Status})
		}
		return dataLoadedMsg{items}
	}
}

// loadSIDetail fetches invoice detail
func (m Model) loadSIDetail(name string) tea.Cmd {
	return func() tea.Msg {
		si, err := m.client.GetSalesInvoice(name)
		if err != nil {
			return errorMsg{err}
		}
		return invoiceLoadedMsg{si}
	}
}

// renderSIDetail renders the invoice detail view
func (m Model) renderSIDetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	si := m.invoice
	if si == nil {
		return "\n  No data"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Sales Invoice: "+si.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", si.Customer))
	b.WriteString(fmt.Sprintf("  Date: %s\n", si.PostingDate))
	if si.DueDate != "" {
		b.WriteString(fmt.Sprintf("  Due: %s\n", si.DueDate))
	}
	b.WriteString(fmt.Sprintf("  Status: %s\n", renderStatusBadge(si.Status)))
	b.WriteString(fmt.Sprintf("  Net: %s | Tax: %s\n", m.client.FormatCurrency(si.NetTotal), m.client.FormatCurrency(si.TotalTaxesAndCharges)))
	b.WriteString(fmt.Sprintf("  Total: %s\n", m.client.FormatCurrency(si.GrandTotal)))
	if si.OutstandingAmount > 0 {
		b.WriteString(fmt.Sprintf("  Outstanding: %s\n", errorStyle.Render(m.client.FormatCurrency(si.OutstandingAmount))))
	}

	if len(si.Items) > 0 {
		b.WriteString(fmt.Sprintf("\n  %s\n", selectedStyle.Render("Items:")))
		for _, it := range si.Items {
			b.WriteString(fmt.Sprintf("    - %s: %g x %s = %s\n", it.ItemCode, it.Qty, m.client.FormatCurrency(it.Rate), m.client.FormatCurrency(it.Amount)))
		}
	}

	if m.client.Config.TaxSyncMethod == "" {
		b.WriteString("\n" + helpStyle.Render("  Tax sync not configured (ERP_TAX_SYNC_METHOD)"))
	}

	return boxStyle.Render(b.String())
}

// submitSI submits a sales invoice
func (m Model) submitSI(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.SubmitSalesInvoice(name); err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("Invoice submitted: %s", name)}
	}
}

// syncTax sends an invoice to the tax authority
func (m Model) syncTax(name string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.client.SyncInvoiceTax(name)
		if err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		msg := fmt.Sprintf("Tax sync accepted: %s", res.Invoice)
		if res.Reference != "" {
			msg += " (" + res.Reference + ")"
		}
		return formSubmittedMsg{true, msg}
	}
}

// handleSalesKeys handles the action keys of the quotation, order and
// invoice views
func (m Model) handleSalesKeys(key string) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewQuotationDetail:
		q := m.quotation
		if q == nil || m.loading {
			return m, nil
		}
		switch key {
		case "s":
			if q.DocStatus != 0 {
				m.message = "Only draft quotations can be submitted"
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("submit_quotation", fmt.Sprintf("Submit quotation %s?", q.Name))
		case "x":
			if q.DocStatus != 1 {
				m.message = "Only submitted quotations can be cancelled"
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("cancel_quotation", fmt.Sprintf("Cancel quotation %s?", q.Name))
		case "o":
			m.view = ViewConversion
			m.breadcrumbs = append(m.breadcrumbs, "Convert")
			return m.refreshCurrentView()
		case "c":
			lines := m.client.QuotationLines(q)
			copies := make([]pricing.LineItem, len(lines))
			for i, it := range lines {
				it.ID = pricing.NewLineItem().ID
				copies[i] = it
			}
			m.openComposer(q.PartyName, copies, nil)
			m.prevView = ViewQuotationDetail
		case "p":
			m.loading = true
			return m, m.exportPDF(q)
		}
		return m, nil

	case ViewConversion:
		if key != "c" || m.preview == nil || m.loading {
			return m, nil
		}
		if !m.preview.Submitted() {
			m.message = fmt.Sprintf("quotation %s: %s", m.preview.Quotation.Name, ErrNotSubmitted)
			m.messageType = "error"
			return m, nil
		}
		text := fmt.Sprintf("Create sales order from %s?", m.preview.Quotation.Name)
		if m.preview.HasShortfall() {
			text += "\n  Some lines are not fully in stock."
		}
		m.askConfirm("convert_quotation", text)
		return m, nil

	case ViewSODetail:
		so := m.salesOrder
		if so == nil || m.loading {
			return m, nil
		}
		switch key {
		case "s":
			if so.DocStatus != 0 {
				m.message = "Only draft sales orders can be submitted"
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("submit_so", fmt.Sprintf("Submit sales order %s?", so.Name))
		case "i":
			if so.DocStatus != 1 {
				m.message = fmt.Sprintf("sales order %s: %s", so.Name, ErrNotSubmitted)
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("invoice_so", fmt.Sprintf("Create invoice for %s?", so.Name))
		}
		return m, nil

	case ViewSIDetail:
		si := m.invoice
		if si == nil || m.loading {
			return m, nil
		}
		switch key {
		case "s":
			if si.DocStatus != 0 {
				m.message = "Only draft invoices can be submitted"
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("submit_si", fmt.Sprintf("Submit invoice %s?", si.Name))
		case "t":
			if m.client.Config.TaxSyncMethod == "" {
				m.message = ErrTaxSyncNotConfigured.Error()
				m.messageType = "error"
				return m, nil
			}
			if si.DocStatus != 1 {
				m.message = fmt.Sprintf("invoice %s: %s", si.Name, ErrNotSubmitted)
				m.messageType = "error"
				return m, nil
			}
			m.askConfirm("tax_sync", fmt.Sprintf("Send invoice %s to the tax authority?", si.Name))
		}
		return m, nil
	}

	return m, nil
}
