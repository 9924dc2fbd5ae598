package erp

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// updateFormInputs handles form input updates
func (m *Model) updateFormInputs(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			return tea.Quit

		case "tab", "down":
			m.focusIndex++
			if m.focusIndex >= len(m.inputs) {
				m.focusIndex = 0
			}
			return m.updateFocus()

		case "shift+tab", "up":
			m.focusIndex--
			if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs) - 1
			}
			return m.updateFocus()

		case "enter":
			return m.submitCurrentForm()

		case "esc":
			m.view = m.prevView
			if m.view == ViewMain {
				m.breadcrumbs = []string{"Main"}
			}
			return nil
		}
	}

	// Update the focused input
	if m.focusIndex < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return cmd
	}

	return nil
}

// updateFocus updates which input has focus
func (m *Model) updateFocus() tea.Cmd {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return nil
}

// submitCurrentForm submits the current form based on view
func (m *Model) submitCurrentForm() tea.Cmd {
	switch m.view {
	case ViewReorder:
		return m.submitReorder()
	case ViewInquiry:
		return m.submitInquiry()
	}
	return nil
}

func (m Model) renderForm(title string, labels []string, note string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" "+title+" ") + "\n\n")
	for i, input := range m.inputs {
		label := labels[i]
		if i == m.focusIndex {
			label = selectedStyle.Render(label)
		}
		b.WriteString(fmt.Sprintf("  %s\n  %s\n\n", label, input.View()))
	}
	if m.loading {
		b.WriteString(fmt.Sprintf("  %s Working...\n", m.spinner.View()))
	} else if note != "" {
		b.WriteString(helpStyle.Render("  "+note) + "\n")
	}
	return boxStyle.Render(b.String())
}

// askConfirm switches to the confirmation dialog for action.
func (m *Model) askConfirm(action, text string) {
	m.confirmAction = action
	m.confirmMsg = text
	m.prevView = m.view
	m.view = ViewConfirmAction
}

// renderConfirmAction renders the confirm action dialog
func (m Model) renderConfirmAction() string {
	content := fmt.Sprintf(`
  %s

  This action may be irreversible.

  [y] Yes, proceed    [n] No, cancel
`, m.confirmMsg)

	return boxStyle.Render(content)
}

// handleConfirmAction handles the confirm action response
func (m *Model) handleConfirmAction(confirmed bool) tea.Cmd {
	m.view = m.prevView
	if !confirmed {
		return nil
	}

	m.loading = true

	switch m.confirmAction {
	case "submit_quotation":
		return m.submitQuotation(m.selectedItem)
	case "cancel_quotation":
		return m.cancelQuotation(m.selectedItem)
	case "convert_quotation":
		return m.convertQuotation(m.selectedItem)
	case "submit_so":
		return m.submitSO(m.selectedItem)
	case "invoice_so":
		return m.createInvoice(m.selectedItem)
	case "submit_si":
		return m.submitSI(m.selectedItem)
	case "tax_sync":
		return m.syncTax(m.selectedItem)
	}

	m.loading = false
	return nil
}

// viewTitle is the breadcrumb name of the list a view belongs to.
func viewTitle(v View) string {
	switch v {
	case ViewQuotations, ViewQuotationDetail, ViewConversion:
		return "Quotations"
	case ViewSalesOrders, ViewSODetail:
		return "Sales Orders"
	case ViewSalesInvoices, ViewSIDetail:
		return "Sales Invoices"
	case ViewLowStock, ViewReorder:
		return "Low Stock"
	case ViewDashboard:
		return "Dashboard"
	}
	return "Main"
}

// setListTitle sets the title for the current list based on view
func (m *Model) setListTitle() {
	switch m.view {
	case ViewQuotations:
		m.currentList.Title = "Quotations"
	case ViewSalesOrders:
		m.currentList.Title = "Sales Orders"
	case ViewSalesInvoices:
		m.currentList.Title = "Sales Invoices"
	case ViewLowStock:
		m.currentList.Title = fmt.Sprintf("Below %g", m.client.Config.ReorderLevel)
	}
	m.currentList.Styles.Title = titleStyle
}

// renderStatusBadge returns a styled status badge
func renderStatusBadge(status string) string {
	var style = helpStyle

	switch strings.ToLower(status) {
	case "draft":
		style = internetStyle
	case "ordered", "completed", "paid", "submitted":
		style = successStyle
	case "cancelled", "expired", "lost", "overdue":
		style = errorStyle
	case "open", "replied", "to bill", "to deliver and bill", "unpaid", "partly paid":
		style = vpnStyle
	}

	return style.Render(status)
}
