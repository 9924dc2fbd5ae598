package erp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loadLowStock fetches the bins below the reorder level
func (m Model) loadLowStock() tea.Cmd {
	return func() tea.Msg {
		levels, err := m.client.LowStockItems(m.client.Config.ReorderLevel)
		if err != nil {
			return errorMsg{err}
		}
		return lowStockLoadedMsg{levels}
	}
}

// handleStockKeys opens the reorder form, for every low item ("r") or for
// the selected one ("enter")
func (m Model) handleStockKeys(key string) (tea.Model, tea.Cmd) {
	if m.view != ViewLowStock || m.loading {
		return m, nil
	}

	switch key {
	case "r":
		m.reorderLevels = append([]StockLevel(nil), m.lowStock...)
	case "enter":
		item, ok := m.currentList.SelectedItem().(ListItem)
		if !ok {
			return m, nil
		}
		m.reorderLevels = nil
		for _, l := range m.lowStock {
			if l.ItemCode == item.name {
				m.reorderLevels = append(m.reorderLevels, l)
			}
		}
	default:
		return m, nil
	}

	if len(m.reorderLevels) == 0 {
		m.message = "Nothing to reorder"
		m.messageType = "error"
		return m, nil
	}

	m.initReorderForm()
	m.prevView = ViewLowStock
	m.view = ViewReorder
	m.breadcrumbs = []string{"Main", "Low Stock", "Reorder"}
	return m, nil
}

// initReorderForm initializes the reorder form
func (m *Model) initReorderForm() {
	m.inputs = make([]textinput.Model, 1)

	m.inputs[0] = textinput.New()
	m.inputs[0].Placeholder = "Target quantity"
	m.inputs[0].Focus()
	m.inputs[0].CharLimit = 12
	m.inputs[0].SetValue(strconv.FormatFloat(m.client.Config.ReorderTarget, 'f', -1, 64))

	m.focusIndex = 0
}

// renderReorder renders the reorder form with what will be requested
func (m Model) renderReorder() string {
	target, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[0].Value()), 64)
	if err != nil {
		target = m.client.Config.ReorderTarget
	}

	var b strings.Builder
	b.WriteString(m.renderForm("Material Request", []string{"Bring projected quantity up to"}, ""))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %-20s %-20s %10s %10s", "Item", "Warehouse", "Projected", "Request")) + "\n")
	for _, l := range m.reorderLevels {
		qty := l.ReorderQty(target)
		line := fmt.Sprintf("  %-20s %-20s %10g %10g", truncate(l.ItemCode, 20), truncate(l.Warehouse, 20), l.ProjectedQty, qty)
		if qty == 0 {
			line = helpStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// submitReorder creates the material request
func (m *Model) submitReorder() tea.Cmd {
	target, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[0].Value()), 64)
	if err != nil || target <= 0 {
		m.message = "Target must be a positive number"
		m.messageType = "error"
		return nil
	}

	levels := m.reorderLevels
	client := m.client
	m.loading = true
	m.view = ViewLowStock
	m.breadcrumbs = []string{"Main", "Low Stock"}

	return func() tea.Msg {
		name, err := client.Reorder(levels, target)
		if err != nil {
			return formSubmittedMsg{false, err.Error()}
		}
		return formSubmittedMsg{true, fmt.Sprintf("Material request created: %s", name)}
	}
}
