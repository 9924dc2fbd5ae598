package erp

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// loadDashboard fetches dashboard data
func (m Model) loadDashboard() tea.Cmd {
	return func() tea.Msg {
		// Pre-fetch currency
		m.client.GetCurrency()
		return dashboardLoadedMsg{m.client.LoadDashboard()}
	}
}

// renderDashboard renders the dashboard view with scrollable viewport
func (m Model) renderDashboard() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading dashboard...", m.spinner.View())
	}

	if m.dashboardData == nil {
		return "\n  No data available"
	}

	if !m.viewportReady {
		return "\n  Initializing..."
	}

	// Show viewport with scroll indicator
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Scroll indicator
	scrollPercent := m.viewport.ScrollPercent() * 100
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  ↑↓ scroll • %.0f%% ", scrollPercent)))
	}

	return b.String()
}

// renderDashboardContent returns the dashboard content for the viewport
func (m Model) renderDashboardContent() string {
	if m.dashboardData == nil {
		return "No data available"
	}

	data := m.dashboardData
	var b strings.Builder

	b.WriteString(titleStyle.Render(" " + strings.ToUpper(m.client.Config.Brand) + " "))
	b.WriteString("\n\n")

	b.WriteString(m.renderDashboardQuotations(data))
	b.WriteString("\n")
	b.WriteString(m.renderDashboardBilling(data))
	b.WriteString("\n")
	b.WriteString(m.renderDashboardStock(data))
	b.WriteString("\n\n")

	// Footer
	modeStr := "VPN"
	if m.client.Mode == "internet" {
		modeStr = "Internet"
	}
	currencyStr := defaultCurrency.Code
	if m.client.Currency != nil {
		currencyStr = m.client.Currency.Code
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	b.WriteString(helpStyle.Render(fmt.Sprintf("Updated: %s | Mode: %s | Currency: %s", timestamp, modeStr, currencyStr)))

	if len(data.Errors) > 0 {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Warnings:"))
		for _, err := range data.Errors {
			b.WriteString(fmt.Sprintf("\n  - %s", err))
		}
	}

	return b.String()
}

func (m Model) renderDashboardQuotations(data *ReportData) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("QUOTATIONS"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Drafts:             %s\n", internetStyle.Render(fmt.Sprintf("%d", data.DraftQuotations))))
	b.WriteString(fmt.Sprintf("  Open:               %d (%s)\n", data.OpenQuotations, m.client.FormatCurrency(data.OpenQuotationValue)))

	if len(data.TopCustomers) > 0 {
		b.WriteString("\n  Top Customers:\n")
		for i, s := range data.TopCustomers {
			b.WriteString(fmt.Sprintf("    %d. %-25s %3d  %s\n", i+1, truncate(s.Name, 25), s.Quotations, m.client.FormatCurrency(s.Value)))
		}
	}

	return b.String()
}

func (m Model) renderDashboardBilling(data *ReportData) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("ORDERS & BILLING"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Orders to Bill:     %d (%s)\n", data.PendingSOs, m.client.FormatCurrency(data.PendingSOValue)))

	if data.UnpaidInvoices > 0 {
		b.WriteString(fmt.Sprintf("  Unpaid Invoices:    %s\n", errorStyle.Render(fmt.Sprintf("%d (%s)", data.UnpaidInvoices, m.client.FormatCurrency(data.UnpaidValue)))))
	} else {
		b.WriteString(fmt.Sprintf("  Unpaid Invoices:    %d\n", data.UnpaidInvoices))
	}

	return b.String()
}

func (m Model) renderDashboardStock(data *ReportData) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("STOCK"))
	b.WriteString("\n\n")

	if data.LowStockItems > 0 {
		b.WriteString(fmt.Sprintf("  Below %-13g %s\n", m.client.Config.ReorderLevel, errorStyle.Render(fmt.Sprintf("%d", data.LowStockItems))))
	} else {
		b.WriteString(fmt.Sprintf("  Below %-13g %d\n", m.client.Config.ReorderLevel, data.LowStockItems))
	}
	b.WriteString(fmt.Sprintf("  Customers:          %d\n", data.TotalCustomers))

	return b.String()
}
