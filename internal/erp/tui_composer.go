package erp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// composerEvent tells the model what the composer wants after a key press.
type composerEvent int

const (
	composerNone composerEvent = iota
	composerCancel
	composerSubmit
)

// column widths of the line table
var composerWidths = map[pricing.Field]int{
	pricing.FieldItemCode:        12,
	pricing.FieldDescription:     28,
	pricing.FieldQuantity:        7,
	pricing.FieldUnitPrice:       11,
	pricing.FieldDiscountPercent: 7,
	pricing.FieldTaxPercent:      7,
}

const lineTotalWidth = 14

// composer is the quotation editor: a customer field on top of an editable
// table of line items. Every edit goes through the pricing reducer, so line
// totals and aggregate totals are always current.
type composer struct {
	customer textinput.Model
	editor   textinput.Model

	items      []pricing.LineItem
	defaultTax string

	onCustomer bool
	editing    bool
	row, col   int

	violations *pricing.ValidationError
	skipped    []SkippedLine
}

func newComposer(defaultTax, customer string, items []pricing.LineItem) composer {
	ci := textinput.New()
	ci.Placeholder = "Customer name"
	ci.CharLimit = 140
	ci.Width = 40
	ci.SetValue(customer)

	ed := textinput.New()
	ed.Prompt = ""
	ed.CharLimit = 140

	c := composer{
		customer:   ci,
		editor:     ed,
		items:      items,
		defaultTax: defaultTax,
		col:        1,
	}
	if customer == "" {
		c.onCustomer = true
		c.customer.Focus()
	}
	return c
}

func (c composer) field() pricing.Field {
	return pricing.Fields[c.col]
}

func (c composer) current() (pricing.LineItem, bool) {
	if c.row < 0 || c.row >= len(c.items) {
		return pricing.LineItem{}, false
	}
	return c.items[c.row], true
}

// Totals aggregates the lines being edited.
func (c composer) Totals() pricing.Totals {
	return pricing.ComputeTotals(c.items)
}

// Customer returns the trimmed customer name.
func (c composer) Customer() string {
	return strings.TrimSpace(c.customer.Value())
}

// Items returns the lines being edited.
func (c composer) Items() []pricing.LineItem {
	return c.items
}

// validate checks the whole quotation and records the violations so the
// table can flag them.
func (c *composer) validate() error {
	c.violations = nil
	if len(c.items) == 0 {
		return fmt.Errorf("add at least one line: %w", ErrNoItems)
	}
	if err := pricing.Validate(c.items); err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			c.violations = verr
			return fmt.Errorf("%d problem(s) must be fixed before submitting", len(verr.Violations))
		}
		return err
	}
	if c.Customer() == "" {
		return errors.New("customer is required")
	}
	return nil
}

// Update handles one key press.
func (c composer) Update(msg tea.KeyMsg) (composer, composerEvent, tea.Cmd) {
	key := msg.String()

	if c.editing {
		switch key {
		case "enter":
			c.commit()
			c.moveCol(1)
			return c, composerNone, nil
		case "tab":
			c.commit()
			c.moveCol(1)
			c.startEdit()
			return c, composerNone, nil
		case "esc":
			c.editing = false
			c.editor.Blur()
			return c, composerNone, nil
		}
		var cmd tea.Cmd
		c.editor, cmd = c.editor.Update(msg)
		return c, composerNone, cmd
	}

	switch key {
	case "ctrl+s":
		return c, composerSubmit, nil
	case "esc":
		return c, composerCancel, nil
	}

	if c.onCustomer {
		switch key {
		case "tab", "down", "enter":
			c.onCustomer = false
			c.customer.Blur()
			if len(c.items) == 0 {
				c.add()
			}
			return c, composerNone, nil
		}
		var cmd tea.Cmd
		c.customer, cmd = c.customer.Update(msg)
		return c, composerNone, cmd
	}

	switch key {
	case "up", "k":
		if c.row == 0 {
			c.onCustomer = true
			c.customer.Focus()
		} else {
			c.row--
		}
	case "down", "j":
		if c.row < len(c.items)-1 {
			c.row++
		}
	case "left", "h", "shift+tab":
		c.moveCol(-1)
	case "right", "l", "tab":
		c.moveCol(1)
	case "enter", "e":
		if len(c.items) == 0 {
			c.add()
		} else {
			c.startEdit()
		}
	case "a":
		c.add()
	case "x", "delete":
		if it, ok := c.current(); ok {
			c.items = pricing.Remove(c.items, it.ID)
			if c.row >= len(c.items) && c.row > 0 {
				c.row--
			}
			c.revalidate()
		}
	}
	return c, composerNone, nil
}

// add appends a line with the default tax and starts editing its
// description.
func (c *composer) add() {
	c.items = pricing.Add(c.items)
	last := c.items[len(c.items)-1]
	if c.defaultTax != "" {
		c.items = pricing.Apply(c.items, last.ID, pricing.FieldTaxPercent, c.defaultTax)
	}
	c.row = len(c.items) - 1
	c.col = 1
	c.startEdit()
	c.revalidate()
}

func (c *composer) startEdit() {
	it, ok := c.current()
	if !ok {
		return
	}
	c.editing = true
	c.editor.Width = composerWidths[c.field()]
	c.editor.SetValue(it.Get(c.field()))
	c.editor.CursorEnd()
	c.editor.Focus()
}

func (c *composer) commit() {
	c.editing = false
	c.editor.Blur()
	it, ok := c.current()
	if !ok {
		return
	}
	c.items = pricing.Apply(c.items, it.ID, c.field(), c.editor.Value())
	c.revalidate()
}

// moveCol moves the cursor across fields, wrapping to the next or previous
// line at the ends.
func (c *composer) moveCol(delta int) {
	c.col += delta
	switch {
	case c.col >= len(pricing.Fields):
		if c.row < len(c.items)-1 {
			c.row++
			c.col = 0
		} else {
			c.col = len(pricing.Fields) - 1
		}
	case c.col < 0:
		if c.row > 0 {
			c.row--
			c.col = len(pricing.Fields) - 1
		} else {
			c.col = 0
		}
	}
}

// revalidate keeps the flagged cells current once a submit has failed.
func (c *composer) revalidate() {
	if c.violations == nil {
		return
	}
	if vs := pricing.ValidateItems(c.items); len(vs) > 0 {
		c.violations = &pricing.ValidationError{Violations: vs}
	} else {
		c.violations = nil
	}
}

func (c composer) flagged(id string, f pricing.Field) bool {
	if c.violations == nil {
		return false
	}
	for _, v := range c.violations.ForItem(id) {
		if v.Field == f {
			return true
		}
	}
	return false
}

func pad(s string, w int, right bool) string {
	r := []rune(s)
	if len(r) > w {
		r = append(r[:w-1], '…')
	}
	if right {
		return fmt.Sprintf("%*s", w, string(r))
	}
	return fmt.Sprintf("%-*s", w, string(r))
}

func rightAligned(f pricing.Field) bool {
	return f != pricing.FieldItemCode && f != pricing.FieldDescription
}

// View renders the composer. format prints money amounts.
func (c composer) View(format func(decimal.Decimal) string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" New Quotation ") + "\n\n")

	label := "Customer:"
	if c.onCustomer {
		label = selectedStyle.Render(label)
	}
	b.WriteString(fmt.Sprintf("  %s %s\n\n", label, c.customer.View()))

	// header
	b.WriteString("  " + pad("#", 3, false))
	for _, f := range pricing.Fields {
		b.WriteString(" " + helpStyle.Render(pad(f.Label(), composerWidths[f], rightAligned(f))))
	}
	b.WriteString(" " + helpStyle.Render(pad("Line Total", lineTotalWidth, true)) + "\n")

	if len(c.items) == 0 {
		b.WriteString(helpStyle.Render("  No lines yet. Press a to add one.") + "\n")
	}

	for i, it := range c.items {
		b.WriteString("  " + pad(fmt.Sprintf("%d", i+1), 3, false))
		for j, f := range pricing.Fields {
			w := composerWidths[f]
			cursor := !c.onCustomer && i == c.row && j == c.col
			if cursor && c.editing {
				b.WriteString(" " + pad(c.editor.View(), w, false))
				continue
			}
			text := pad(it.Get(f), w, rightAligned(f))
			switch {
			case cursor:
				text = cellCursorStyle.Render(text)
			case c.flagged(it.ID, f):
				text = errorStyle.Render(text)
			}
			b.WriteString(" " + text)
		}
		b.WriteString(" " + pad(format(it.LineTotal.Round(2)), lineTotalWidth, true) + "\n")
	}

	t := c.Totals().Round(2)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %-14s %s\n", "Subtotal:", format(t.Subtotal)))
	b.WriteString(fmt.Sprintf("  %-14s -%s\n", "Discount:", format(t.DiscountAmount)))
	b.WriteString(fmt.Sprintf("  %-14s %s\n", "Tax:", format(t.TaxAmount)))
	b.WriteString(successStyle.Render(fmt.Sprintf("  %-14s %s", "Grand Total:", format(t.GrandTotal))) + "\n")

	if c.violations != nil && len(c.violations.Violations) > 0 {
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("  %d problem(s):", len(c.violations.Violations))) + "\n")
		for i, it := range c.items {
			for _, v := range c.violations.ForItem(it.ID) {
				b.WriteString(fmt.Sprintf("    line %d: %s\n", i+1, v.Message))
			}
		}
	}

	if len(c.skipped) > 0 {
		b.WriteString("\n" + internetStyle.Render(fmt.Sprintf("  %d inquiry line(s) not imported:", len(c.skipped))) + "\n")
		for i, s := range c.skipped {
			if i >= 5 {
				b.WriteString(fmt.Sprintf("    ... and %d more\n", len(c.skipped)-5))
				break
			}
			b.WriteString(fmt.Sprintf("    %d: %s\n", s.Line, truncate(s.Text, 60)))
		}
	}

	return boxStyle.Render(b.String())
}

// Help is the key help for the composer's current state.
func (c composer) Help() string {
	switch {
	case c.editing:
		return "enter: save • tab: save & next • esc: discard"
	case c.onCustomer:
		return "type customer • tab/enter: lines • ctrl+s: submit • esc: cancel"
	}
	return "↑/↓/←/→: move • enter: edit • a: add line • x: remove line • ctrl+s: submit • esc: cancel"
}

// updateComposer routes keys to the composer and acts on its events.
func (m Model) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var ev composerEvent
	var cmd tea.Cmd
	m.composer, ev, cmd = m.composer.Update(msg)

	switch ev {
	case composerCancel:
		m.message = ""
		m.view = m.prevView
		if m.view == ViewMain {
			m.breadcrumbs = []string{"Main"}
		} else {
			m.breadcrumbs = []string{"Main", viewTitle(m.view)}
		}
		return m, nil

	case composerSubmit:
		if m.loading {
			return m, nil
		}
		if err := m.composer.validate(); err != nil {
			m.message = err.Error()
			m.messageType = "error"
			return m, nil
		}
		m.message = ""
		m.loading = true
		return m, m.submitComposer()
	}

	return m, cmd
}

func (m Model) submitComposer() tea.Cmd {
	customer := m.composer.Customer()
	items := m.composer.Items()
	return func() tea.Msg {
		name, err := m.client.CreateQuotation(customer, items)
		if err != nil {
			return errorMsg{err}
		}
		return docCreatedMsg{
			message: fmt.Sprintf("Quotation created: %s", name),
			view:    ViewQuotationDetail,
			name:    name,
		}
	}
}
