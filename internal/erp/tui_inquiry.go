package erp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// initInquiryForm initializes the inquiry import form
func (m *Model) initInquiryForm() {
	m.inputs = make([]textinput.Model, 2)

	m.inputs[0] = textinput.New()
	m.inputs[0].Placeholder = "Customer Name"
	m.inputs[0].Focus()
	m.inputs[0].CharLimit = 140
	m.inputs[0].Width = 40

	m.inputs[1] = textinput.New()
	m.inputs[1].Placeholder = "inquiry.pdf"
	m.inputs[1].CharLimit = 400
	m.inputs[1].Width = 60

	m.focusIndex = 0
}

func (m Model) renderInquiryForm() string {
	note := "Text files are read directly; other formats go through Apache Tika."
	if m.client.Config.TikaURL == "" {
		note = "TIKA_URL is not set: only plain text files can be imported."
	}
	return m.renderForm("Import Inquiry", []string{"Customer", "File"}, note)
}

// submitInquiry reads the file and opens the composer with the lines found
func (m *Model) submitInquiry() tea.Cmd {
	customer := strings.TrimSpace(m.inputs[0].Value())
	path := strings.TrimSpace(m.inputs[1].Value())
	if path == "" {
		m.message = "File is required"
		m.messageType = "error"
		return nil
	}

	m.loading = true
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		text, err := client.ExtractInquiryFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("reading %s timed out", path)
			}
			return errorMsg{err}
		}
		result, err := ParseInquiry(text, client.Config.DefaultTax)
		if err != nil {
			return errorMsg{err}
		}
		return inquiryLoadedMsg{customer: customer, result: result}
	}
}
