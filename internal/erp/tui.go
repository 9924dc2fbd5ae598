package erp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// Version info
const (
	Version = "0.4.0"
	Author  = "Mikel Calvo"
	Year    = "2026"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	vpnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	internetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	creditStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	cellCursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#7D56F4")).
			Foreground(lipgloss.Color("#FFF"))

	notificationSuccess = lipgloss.NewStyle().
				Background(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	notificationError = lipgloss.NewStyle().
				Background(lipgloss.Color("#FF4444")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// View represents different screens
type View int

const (
	ViewMain View = iota
	ViewDashboard
	ViewQuotations
	ViewQuotationDetail
	ViewComposer
	ViewConversion
	ViewSalesOrders
	ViewSODetail
	ViewSalesInvoices
	ViewSIDetail
	ViewLowStock
	ViewReorder
	ViewInquiry
	ViewConfirmAction
)

// MenuItem for the main menu
type MenuItem struct {
	title       string
	description string
	view        View
}

func (i MenuItem) Title() string       { return i.title }
func (i MenuItem) Description() string { return i.description }
func (i MenuItem) FilterValue() string { return i.title }

// ListItem for resource lists
type ListItem struct {
	name    string
	details string
	date    string
	amount  float64 // For totals in footer
	status  string  // For status counts
}

func (i ListItem) Title() string       { return i.name }
func (i ListItem) Description() string { return i.details }
func (i ListItem) FilterValue() string { return i.name }

// isListView returns true if the current view is a list view that supports sorting and totals
func (m Model) isListView() bool {
	switch m.view {
	case ViewQuotations, ViewSalesOrders, ViewSalesInvoices:
		return true
	}
	return false
}

// Model is the main TUI model
type Model struct {
	client       *Client
	view         View
	prevView     View
	width        int
	height       int
	mainMenu     list.Model
	currentList  list.Model
	inputs       []textinput.Model
	focusIndex   int
	message      string
	messageType  string
	loading      bool
	selectedItem string

	quotation     *Quotation
	salesOrder    *SalesOrder
	invoice       *SalesInvoice
	preview       *ConversionPreview
	lowStock      []StockLevel
	reorderLevels []StockLevel
	composer      composer

	dashboardData *ReportData
	confirmAction string
	confirmMsg    string

	spinner          spinner.Model
	breadcrumbs      []string
	notification     string
	notificationType string // "success" or "error"
	showNotification bool
	viewport         viewport.Model // Scrollable viewport for dashboard
	viewportReady    bool

	sortOrder int        // 0=date desc, 1=date asc, 2=name, 3=total
	listItems []ListItem // Store items for totals calculation
}

// Messages
type connectedMsg struct {
	mode string
	url  string
}

type errorMsg struct {
	err error
}

type dataLoadedMsg struct {
	items []ListItem
}

type quotationLoadedMsg struct{ q *Quotation }

type salesOrderLoadedMsg struct{ so *SalesOrder }

type invoiceLoadedMsg struct{ si *SalesInvoice }

type previewLoadedMsg struct{ p *ConversionPreview }

type lowStockLoadedMsg struct{ levels []StockLevel }

type dashboardLoadedMsg struct {
	data *ReportData
}

type inquiryLoadedMsg struct {
	customer string
	result   InquiryResult
}

type formSubmittedMsg struct {
	success bool
	message string
}

// docCreatedMsg opens the detail view of a document that was just created.
type docCreatedMsg struct {
	message string
	view    View
	name    string
}

type clearNotificationMsg struct{}

// NewTUI creates a new TUI model
func NewTUI(client *Client) Model {
	menuItems := []list.Item{
		MenuItem{"Dashboard", "Open quotations, billing & stock at a glance", ViewDashboard},
		MenuItem{"New Quotation", "Compose a quotation line by line", ViewComposer},
		MenuItem{"Import Inquiry", "Draft a quotation from a customer document", ViewInquiry},
		MenuItem{"Quotations", "Review, submit & convert to sales orders", ViewQuotations},
		MenuItem{"Sales Orders", "Submit & invoice", ViewSalesOrders},
		MenuItem{"Sales Invoices", "Submit & sync with the tax authority", ViewSalesInvoices},
		MenuItem{"Low Stock", "Items below the reorder level", ViewLowStock},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	mainMenu := list.New(menuItems, delegate, 0, 0)
	mainMenu.Title = client.Config.Brand
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	mainMenu.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return Model{
		client:      client,
		view:        ViewMain,
		mainMenu:    mainMenu,
		loading:     true,
		spinner:     s,
		breadcrumbs: []string{"Main"},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.detectConnection(),
		m.spinner.Tick,
	)
}

func (m Model) detectConnection() tea.Cmd {
	return func() tea.Msg {
		m.client.DetectConnection()
		m.client.GetCurrency()
		return connectedMsg{
			mode: m.client.Mode,
			url:  m.client.ActiveURL,
		}
	}
}

// openComposer starts a new quotation, optionally prefilled.
func (m *Model) openComposer(customer string, items []pricing.LineItem, skipped []SkippedLine) {
	m.composer = newComposer(m.client.Config.DefaultTax, customer, items)
	m.composer.skipped = skipped
	m.prevView = ViewMain
	m.view = ViewComposer
	m.breadcrumbs = []string{"Main", "New Quotation"}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.view == ViewComposer {
			return m.updateComposer(msg)
		}
		if m.view == ViewReorder || m.view == ViewInquiry {
			cmd := m.updateFormInputs(msg)
			return m, cmd
		}

		m.message = ""
		m.messageType = ""

		// Let the list filter swallow keys while the user is typing
		if m.isFiltering() {
			break
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.view == ViewMain {
				return m, tea.Quit
			}
			m.view = ViewMain
			m.breadcrumbs = []string{"Main"}
			return m, nil

		case "esc":
			return m.back(), nil

		case "enter":
			return m.handleEnter()

		case "y":
			if m.view == ViewConfirmAction {
				cmd := m.handleConfirmAction(true)
				return m, cmd
			}

		case "n":
			if m.view == ViewConfirmAction {
				cmd := m.handleConfirmAction(false)
				return m, cmd
			}
			if m.view == ViewQuotations {
				m.openComposer("", nil, nil)
				m.prevView = ViewQuotations
				return m, nil
			}

		case "r":
			if m.view == ViewLowStock {
				return m.handleStockKeys("r")
			}
			return m.refreshCurrentView()

		case "o":
			if m.isListView() {
				m.sortOrder = (m.sortOrder + 1) % 4
				m.applySort()
				return m, nil
			}
			return m.handleSalesKeys("o")

		case "s", "x", "i", "t", "p", "c":
			return m.handleSalesKeys(msg.String())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		h := msg.Height - 8
		w := msg.Width - 4

		m.mainMenu.SetSize(w, h)
		if m.currentList.Items() != nil {
			m.currentList.SetSize(w, h)
		}

		headerHeight := 4 // status bar + breadcrumbs + notification + padding
		footerHeight := 4 // help + credits
		m.viewport = viewport.New(w, msg.Height-headerHeight-footerHeight)
		m.viewport.YPosition = headerHeight
		m.viewportReady = true
		if m.dashboardData != nil {
			m.viewport.SetContent(m.renderDashboardContent())
		}

	case connectedMsg:
		m.loading = false
		m.client.Mode = msg.mode
		m.client.ActiveURL = msg.url
		return m, nil

	case errorMsg:
		m.loading = false
		m.client.Logger.Warn("tui action failed", zap.Int("view", int(m.view)), zap.Error(msg.err))
		var verr *pricing.ValidationError
		if m.view == ViewComposer && errors.As(msg.err, &verr) {
			m.composer.violations = verr
		}
		m.message = msg.err.Error()
		m.messageType = "error"
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		m.listItems = msg.items
		m.applySort()
		return m, nil

	case quotationLoadedMsg:
		m.loading = false
		m.quotation = msg.q
		return m, nil

	case salesOrderLoadedMsg:
		m.loading = false
		m.salesOrder = msg.so
		return m, nil

	case invoiceLoadedMsg:
		m.loading = false
		m.invoice = msg.si
		return m, nil

	case previewLoadedMsg:
		m.loading = false
		m.preview = msg.p
		return m, nil

	case lowStockLoadedMsg:
		m.loading = false
		m.lowStock = msg.levels
		items := make([]ListItem, 0, len(msg.levels))
		for _, l := range msg.levels {
			items = append(items, ListItem{
				name: l.ItemCode,
				details: fmt.Sprintf("%s | projected %g | actual %g | reorder +%g",
					l.Warehouse, l.ProjectedQty, l.ActualQty, l.ReorderQty(m.client.Config.ReorderTarget)),
				amount: l.ProjectedQty,
			})
		}
		m.listItems = items
		m.setList(items)
		return m, nil

	case inquiryLoadedMsg:
		m.loading = false
		if len(msg.result.Items) == 0 {
			m.message = fmt.Sprintf("no item lines found (%d skipped)", len(msg.result.Skipped))
			m.messageType = "error"
			return m, nil
		}
		m.openComposer(msg.customer, msg.result.Items, msg.result.Skipped)
		m.breadcrumbs = []string{"Main", "Import Inquiry", "Draft"}
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		m.dashboardData = msg.data
		if m.viewportReady {
			m.viewport.SetContent(m.renderDashboardContent())
			m.viewport.GotoTop()
		}
		return m, nil

	case formSubmittedMsg:
		m.loading = false
		if msg.success {
			m.client.Logger.Info("tui action", zap.String("result", msg.message))
			refreshModel, refreshCmd := m.refreshCurrentView()
			m = refreshModel.(Model)
			notifyCmd := m.notify(msg.message)
			return m, tea.Batch(refreshCmd, notifyCmd)
		}
		m.message = msg.message
		m.messageType = "error"
		return m, nil

	case docCreatedMsg:
		m.loading = false
		m.client.Logger.Info("tui action", zap.String("result", msg.message))
		m.selectedItem = msg.name
		m.view = msg.view
		m.breadcrumbs = []string{"Main", viewTitle(msg.view), msg.name}
		refreshModel, refreshCmd := m.refreshCurrentView()
		m = refreshModel.(Model)
		notifyCmd := m.notify(msg.message)
		return m, tea.Batch(refreshCmd, notifyCmd)

	case clearNotificationMsg:
		m.showNotification = false
		m.notification = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.view {
	case ViewMain:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case ViewDashboard:
		m.viewport, cmd = m.viewport.Update(msg)
	case ViewQuotations, ViewSalesOrders, ViewSalesInvoices, ViewLowStock:
		m.currentList, cmd = m.currentList.Update(msg)
	}

	return m, cmd
}

// notify shows a success notification that dismisses itself after 3 seconds.
func (m *Model) notify(text string) tea.Cmd {
	m.notification = text
	m.notificationType = "success"
	m.showNotification = true
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (m Model) isFiltering() bool {
	switch m.view {
	case ViewQuotations, ViewSalesOrders, ViewSalesInvoices, ViewLowStock:
		return m.currentList.FilterState() == list.Filtering
	}
	return false
}

// back returns to the parent of the current view.
func (m Model) back() Model {
	switch m.view {
	case ViewMain:
	case ViewQuotationDetail:
		m.view = ViewQuotations
		m.breadcrumbs = []string{"Main", "Quotations"}
	case ViewConversion:
		m.view = ViewQuotationDetail
		if len(m.breadcrumbs) > 3 {
			m.breadcrumbs = m.breadcrumbs[:3]
		}
	case ViewSODetail:
		m.view = ViewSalesOrders
		m.breadcrumbs = []string{"Main", "Sales Orders"}
	case ViewSIDetail:
		m.view = ViewSalesInvoices
		m.breadcrumbs = []string{"Main", "Sales Invoices"}
	case ViewConfirmAction:
		m.view = m.prevView
	default:
		m.view = ViewMain
		m.breadcrumbs = []string{"Main"}
	}
	return m
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		item, ok := m.mainMenu.SelectedItem().(MenuItem)
		if !ok {
			return m, nil
		}
		m.breadcrumbs = []string{"Main", item.title}

		switch item.view {
		case ViewComposer:
			m.openComposer("", nil, nil)
			return m, nil
		case ViewInquiry:
			m.initInquiryForm()
			m.prevView = ViewMain
			m.view = ViewInquiry
			return m, nil
		}

		m.view = item.view
		return m.refreshCurrentView()

	case ViewQuotations, ViewSalesOrders, ViewSalesInvoices:
		item, ok := m.currentList.SelectedItem().(ListItem)
		if !ok {
			return m, nil
		}
		m.selectedItem = item.name
		m.breadcrumbs = append(m.breadcrumbs[:2], item.name)
		switch m.view {
		case ViewQuotations:
			m.view = ViewQuotationDetail
		case ViewSalesOrders:
			m.view = ViewSODetail
		case ViewSalesInvoices:
			m.view = ViewSIDetail
		}
		return m.refreshCurrentView()

	case ViewLowStock:
		return m.handleStockKeys("enter")
	}

	return m, nil
}

func (m Model) refreshCurrentView() (tea.Model, tea.Cmd) {
	m.loading = true
	switch m.view {
	case ViewDashboard:
		return m, m.loadDashboard()
	case ViewQuotations:
		return m, m.loadQuotations()
	case ViewQuotationDetail:
		return m, m.loadQuotationDetail(m.selectedItem)
	case ViewConversion:
		return m, m.loadPreview(m.selectedItem)
	case ViewSalesOrders:
		return m, m.loadSalesOrders()
	case ViewSODetail:
		return m, m.loadSODetail(m.selectedItem)
	case ViewSalesInvoices:
		return m, m.loadSalesInvoices()
	case ViewSIDetail:
		return m, m.loadSIDetail(m.selectedItem)
	case ViewLowStock:
		return m, m.loadLowStock()
	}
	m.loading = false
	return m, nil
}

// setList replaces the current list with items.
func (m *Model) setList(items []ListItem) {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle

	m.currentList = list.New(listItems, delegate, m.width-4, m.height-8)
	m.currentList.SetShowStatusBar(true)
	m.currentList.SetFilteringEnabled(true)
	m.setListTitle()
}

// applySort orders listItems by the current sort order and rebuilds the list.
func (m *Model) applySort() {
	items := append([]ListItem(nil), m.listItems...)
	switch m.sortOrder {
	case 0:
		sort.SliceStable(items, func(i, j int) bool { return items[i].date > items[j].date })
	case 1:
		sort.SliceStable(items, func(i, j int) bool { return items[i].date < items[j].date })
	case 2:
		sort.SliceStable(items, func(i, j int) bool { return items[i].name < items[j].name })
	case 3:
		sort.SliceStable(items, func(i, j int) bool { return items[i].amount > items[j].amount })
	}
	m.setList(items)
}

func sortLabel(order int) string {
	return [...]string{"newest", "oldest", "name", "total"}[order%4]
}

// renderListFooter shows the count, total and sort order of the list.
func (m Model) renderListFooter() string {
	if !m.isListView() || len(m.listItems) == 0 {
		return ""
	}
	total := 0.0
	drafts := 0
	for _, it := range m.listItems {
		total += it.amount
		if it.status == "Draft" {
			drafts++
		}
	}
	return helpStyle.Render(fmt.Sprintf("\n  %d documents (%d draft) • total %s • sorted by %s",
		len(m.listItems), drafts, m.client.FormatCurrency(total), sortLabel(m.sortOrder)))
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch m.view {
	case ViewMain:
		content = m.mainMenu.View()
	case ViewQuotations, ViewSalesOrders, ViewSalesInvoices, ViewLowStock:
		if m.loading {
			content = fmt.Sprintf("\n  %s Loading...", m.spinner.View())
		} else {
			content = m.currentList.View() + m.renderListFooter()
		}
	case ViewDashboard:
		content = m.renderDashboard()
	case ViewQuotationDetail:
		content = m.renderQuotationDetail()
	case ViewComposer:
		content = m.composer.View(m.client.FormatAmount)
	case ViewConversion:
		content = m.renderConversion()
	case ViewSODetail:
		content = m.renderSODetail()
	case ViewSIDetail:
		content = m.renderSIDetail()
	case ViewReorder:
		content = m.renderReorder()
	case ViewInquiry:
		content = m.renderInquiryForm()
	case ViewConfirmAction:
		content = m.renderConfirmAction()
	}

	var b strings.Builder

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	b.WriteString(m.renderBreadcrumbs())
	b.WriteString("\n")

	// Notification (success feedback that auto-dismisses)
	if m.showNotification {
		if m.notificationType == "success" {
			b.WriteString(notificationSuccess.Render("✓ " + m.notification))
		} else {
			b.WriteString(notificationError.Render("✗ " + m.notification))
		}
		b.WriteString("\n")
	}

	b.WriteString(content)

	// Error message (persists until user takes action)
	if m.message != "" {
		b.WriteString("\n\n")
		if m.messageType == "error" {
			b.WriteString(errorStyle.Render("Error: " + m.message))
		} else if m.messageType == "success" {
			b.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	b.WriteString("\n")
	b.WriteString(m.renderCredits())

	return b.String()
}

func (m Model) renderStatusBar() string {
	var mode string
	if m.client.Mode == "vpn" {
		mode = vpnStyle.Render("● VPN")
	} else {
		mode = internetStyle.Render("● Internet")
	}

	status := fmt.Sprintf(" %s | %s | %s ", m.client.Config.Brand, mode, m.client.ActiveURL)
	return statusBarStyle.Render(status)
}

func (m Model) renderBreadcrumbs() string {
	if len(m.breadcrumbs) == 0 {
		return ""
	}
	return breadcrumbStyle.Render("  " + strings.Join(m.breadcrumbs, " > "))
}

func (m Model) renderHelp() string {
	var help string
	switch m.view {
	case ViewMain:
		help = "↑/↓: navigate • enter: select • q: quit"
	case ViewDashboard:
		help = "↑/↓/pgup/pgdn: scroll • r: refresh • esc: back"
	case ViewQuotations:
		help = "↑/↓: navigate • enter: detail • n: new • o: sort • r: refresh • /: search • esc: back"
	case ViewSalesOrders, ViewSalesInvoices:
		help = "↑/↓: navigate • enter: detail • o: sort • r: refresh • /: search • esc: back"
	case ViewQuotationDetail:
		help = "esc: back • s: submit • x: cancel • o: convert to SO • c: copy to new • p: export PDF"
	case ViewConversion:
		help = "esc: back • c: create sales order • r: refresh stock"
	case ViewSODetail:
		help = "esc: back • s: submit • i: create invoice"
	case ViewSIDetail:
		help = "esc: back • s: submit • t: tax sync"
	case ViewLowStock:
		help = "↑/↓: navigate • enter: reorder item • r: reorder all • /: search • esc: back"
	case ViewComposer:
		help = m.composer.Help()
	case ViewReorder, ViewInquiry:
		help = "tab: next field • enter: submit • esc: cancel"
	case ViewConfirmAction:
		help = "y: confirm • n: cancel"
	}
	return helpStyle.Render(help)
}

func (m Model) renderCredits() string {
	return creditStyle.Render(fmt.Sprintf("Created by %s in %s • v%s", Author, Year, Version))
}

// RunTUI starts the TUI
func RunTUI(client *Client) error {
	p := tea.NewProgram(NewTUI(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
