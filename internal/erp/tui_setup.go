package erp

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// SetupStep represents the current step in the setup wizard
type SetupStep int

const (
	SetupWelcome SetupStep = iota
	SetupConnection
	SetupQuoting
	SetupValidating
	SetupSuccess
	SetupError
)

// setupField is one input of the wizard.
type setupField struct {
	key         string
	label       string
	placeholder string
	hint        string
	required    bool
	secret      bool
}

var connectionFields = []setupField{
	{key: "ERP_URL", label: "ERPNext URL", placeholder: "https://your-erp.example.com", hint: "Example: https://erp.mycompany.com", required: true},
	{key: "ERP_API_KEY", label: "API Key", placeholder: "API Key from User Settings > API Access", hint: "Find in: User Settings > API Access", required: true},
	{key: "ERP_API_SECRET", label: "API Secret", placeholder: "API Secret (generated with the key)", required: true, secret: true},
	{key: "ERP_VPN", label: "VPN/Direct URL", placeholder: "http://192.168.1.100:8000", hint: "Direct connection tried first"},
	{key: "NGINX_COOKIE", label: "Nginx Cookie", placeholder: "Cookie value for reverse proxy", secret: true},
}

var quotingFields = []setupField{
	{key: "ERP_COMPANY", label: "Company", placeholder: "auto-detected if empty"},
	{key: "ERP_SERVICE_ITEM", label: "Service Item", placeholder: "SERVICE", hint: "Item code for lines typed without one"},
	{key: "ERP_DEFAULT_TAX", label: "Default Tax %", placeholder: pricing.DefaultTaxPercent},
	{key: "ERP_TAX_ACCOUNT", label: "Tax Account", placeholder: "VAT 18% - QD", hint: "Account head for per-line tax rates"},
	{key: "TIKA_URL", label: "Tika URL", placeholder: "http://localhost:9998", hint: "Needed to import PDF and Word inquiries"},
}

// SetupModel is the first-run wizard that writes .erp-config.
type SetupModel struct {
	step       SetupStep
	fields     []setupField
	inputs     []textinput.Model
	focusIndex int
	width      int
	height     int
	err        error
	spinner    spinner.Model
	user       string
	mode       string
	path       string
	log        *zap.Logger
}

// Setup wizard styles
var (
	setupBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2).
			Width(64)

	setupHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

type setupValidateMsg struct {
	user string
	mode string
	err  error
}

type setupSaveMsg struct{ err error }

// NewSetupTUI creates the wizard. path is where the config is written.
func NewSetupTUI(path string, log *zap.Logger) SetupModel {
	if log == nil {
		log = zap.NewNop()
	}
	fields := append(append([]setupField(nil), connectionFields...), quotingFields...)

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = 256
		inputs[i].Width = 50
		if f.secret {
			inputs[i].EchoMode = textinput.EchoPassword
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return SetupModel{
		step:    SetupWelcome,
		fields:  fields,
		inputs:  inputs,
		spinner: s,
		path:    path,
		log:     log,
	}
}

// page returns the index range of the inputs shown on the current step.
func (m SetupModel) page() (int, int) {
	if m.step == SetupQuoting {
		return len(connectionFields), len(m.fields)
	}
	return 0, len(connectionFields)
}

func (m SetupModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			switch m.step {
			case SetupValidating:
				return m, nil
			case SetupQuoting:
				m.step = SetupConnection
				m.focusIndex = 0
				cmd := m.updateInputFocus()
				return m, cmd
			}
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab", "down", "shift+tab", "up":
			if m.step == SetupConnection || m.step == SetupQuoting {
				from, to := m.page()
				if k := msg.String(); k == "tab" || k == "down" {
					m.focusIndex++
				} else {
					m.focusIndex--
				}
				if m.focusIndex >= to {
					m.focusIndex = from
				}
				if m.focusIndex < from {
					m.focusIndex = to - 1
				}
				cmd := m.updateInputFocus()
				return m, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case setupValidateMsg:
		if msg.err != nil {
			m.log.Warn("setup validation failed", zap.Error(msg.err))
			m.step = SetupError
			m.err = msg.err
			return m, nil
		}
		m.user = msg.user
		m.mode = msg.mode
		m.step = SetupQuoting
		m.focusIndex = len(connectionFields)
		cmd := m.updateInputFocus()
		return m, cmd

	case setupSaveMsg:
		if msg.err != nil {
			m.step = SetupError
			m.err = msg.err
			return m, nil
		}
		m.step = SetupSuccess
		return m, nil
	}

	if m.step == SetupConnection || m.step == SetupQuoting {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m SetupModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case SetupWelcome:
		m.step = SetupConnection
		m.focusIndex = 0
		cmd := m.updateInputFocus()
		return m, cmd

	case SetupConnection:
		for i, f := range connectionFields {
			if f.required && strings.TrimSpace(m.inputs[i].Value()) == "" {
				m.focusIndex = i
				cmd := m.updateInputFocus()
				return m, cmd
			}
		}
		m.step = SetupValidating
		return m, tea.Batch(m.spinner.Tick, m.validateCredentials())

	case SetupQuoting:
		config, err := m.config()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		return m, m.saveConfig(config)

	case SetupSuccess:
		return m, tea.Quit

	case SetupError:
		m.step = SetupConnection
		m.focusIndex = 0
		m.err = nil
		cmd := m.updateInputFocus()
		return m, cmd
	}

	return m, nil
}

func (m *SetupModel) updateInputFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focusIndex {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m SetupModel) value(key string) string {
	for i, f := range m.fields {
		if f.key == key {
			return strings.TrimSpace(m.inputs[i].Value())
		}
	}
	return ""
}

// config builds a Config from the inputs through the same setter the config
// file goes through.
func (m SetupModel) config() (*Config, error) {
	config := defaultConfig()
	for i, f := range m.fields {
		v := strings.TrimSuffix(strings.TrimSpace(m.inputs[i].Value()), "/")
		if err := config.set(f.key, v); err != nil {
			return nil, err
		}
	}
	if tax := pricing.ParseNumber(config.DefaultTax); !tax.Valid {
		return nil, fmt.Errorf("default tax must be a number, got %q", config.DefaultTax)
	}
	return config, config.validate()
}

func (m SetupModel) validateCredentials() tea.Cmd {
	config, err := m.config()
	return func() tea.Msg {
		if err != nil {
			return setupValidateMsg{err: err}
		}
		client := NewClient(config)
		client.Logger = m.log
		client.DetectConnection()
		user, err := client.LoggedUser()
		if err != nil {
			return setupValidateMsg{err: err}
		}
		return setupValidateMsg{user: user, mode: client.Mode}
	}
}

// renderConfig writes config in the .erp-config format. Empty optional
// keys are left commented out.
func renderConfig(config *Config, keys []string) string {
	values := map[string]string{
		"ERP_URL":          config.ERPURL,
		"ERP_API_KEY":      config.APIKey,
		"ERP_API_SECRET":   config.APISecret,
		"ERP_VPN":          config.ERPVPN,
		"NGINX_COOKIE":     config.NginxCookie,
		"ERP_COMPANY":      config.Company,
		"ERP_SERVICE_ITEM": config.ServiceItem,
		"ERP_DEFAULT_TAX":  config.DefaultTax,
		"ERP_TAX_ACCOUNT":  config.TaxAccount,
		"TIKA_URL":         config.TikaURL,
	}

	var sb strings.Builder
	sb.WriteString("# Quote Desk configuration\n")
	sb.WriteString("# Generated by setup wizard\n\n")
	for _, key := range keys {
		if v := values[key]; v != "" {
			sb.WriteString(fmt.Sprintf("%s=%s\n", key, v))
		} else {
			sb.WriteString(fmt.Sprintf("# %s=\n", key))
		}
	}
	if config.NginxCookie != "" {
		sb.WriteString(fmt.Sprintf("NGINX_COOKIE_NAME=%s\n", config.NginxCookieName))
	}
	sb.WriteString("\n# ERP_TAX_SYNC_METHOD=\n")
	sb.WriteString("# LOG_FILE=quotedesk.log\n")
	return sb.String()
}

func (m SetupModel) saveConfig(config *Config) tea.Cmd {
	keys := make([]string, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.key
	}
	content := renderConfig(config, keys)
	path := m.path
	return func() tea.Msg {
		return setupSaveMsg{err: os.WriteFile(path, []byte(content), 0600)}
	}
}

func (m SetupModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString("\n")

	switch m.step {
	case SetupWelcome:
		sb.WriteString(titleStyle.Render("  Welcome to Quote Desk  ") + "\n\n")
		sb.WriteString("No configuration file found.\nLet's connect to ERPNext.\n\n")
		sb.WriteString("You'll need:\n  * Your ERPNext URL\n  * API Key & Secret (User Settings > API Access)\n\n")
		sb.WriteString(helpStyle.Render("[Enter] Continue    [Esc] Cancel"))

	case SetupConnection, SetupQuoting:
		title := "  Connection (1/2)  "
		if m.step == SetupQuoting {
			title = "  Quoting (2/2)  "
			sb.WriteString(titleStyle.Render(title) + "\n\n")
			sb.WriteString(fmt.Sprintf("Connected as %s\n\n", selectedStyle.Render(m.user)))
		} else {
			sb.WriteString(titleStyle.Render(title) + "\n\n")
		}
		from, to := m.page()
		for i := from; i < to; i++ {
			f := m.fields[i]
			label := f.label
			if f.required {
				label += " *"
			}
			sb.WriteString(selectedStyle.Render(label))
			if !f.required {
				sb.WriteString(" " + setupHintStyle.Render("(optional)"))
			}
			sb.WriteString("\n" + m.inputs[i].View() + "\n")
			if f.hint != "" {
				sb.WriteString(setupHintStyle.Render(f.hint) + "\n")
			}
			sb.WriteString("\n")
		}
		if m.err != nil {
			sb.WriteString(errorStyle.Render(m.err.Error()) + "\n\n")
		}
		sb.WriteString(helpStyle.Render("[Tab] Next field    [Enter] Continue    [Esc] Back"))

	case SetupValidating:
		sb.WriteString(titleStyle.Render("  Validating  ") + "\n\n")
		sb.WriteString(m.spinner.View() + " Testing connection to ERPNext...\n\n")
		sb.WriteString(fmt.Sprintf("URL: %s\n", m.value("ERP_URL")))
		sb.WriteString(fmt.Sprintf("API Key: %s...\n", truncate(m.value("ERP_API_KEY"), 8)))

	case SetupSuccess:
		sb.WriteString(successStyle.Render("  Setup Complete!  ") + "\n\n")
		sb.WriteString("Configuration saved to: " + selectedStyle.Render(m.path) + "\n\n")
		sb.WriteString(fmt.Sprintf("Connected as: %s\n", selectedStyle.Render(m.user)))
		if m.mode == "vpn" {
			sb.WriteString("Mode: " + vpnStyle.Render("VPN direct"))
		} else {
			sb.WriteString("Mode: " + internetStyle.Render("Internet"))
		}
		sb.WriteString("\n\n" + helpStyle.Render("[Enter] Start Quote Desk"))

	case SetupError:
		sb.WriteString(errorStyle.Render("  Setup Failed  ") + "\n\n")
		if m.err != nil {
			sb.WriteString(fmt.Sprintf("Error: %s\n\n", m.err.Error()))
		}
		sb.WriteString("Please check:\n")
		sb.WriteString("  * URL is correct and reachable\n")
		sb.WriteString("  * API Key and Secret are valid\n")
		sb.WriteString("  * Your ERPNext instance is running\n\n")
		sb.WriteString(helpStyle.Render("[Enter] Try again    [Esc] Cancel"))
	}

	return setupBoxStyle.Render(sb.String())
}

// RunSetupTUI runs the wizard and reports whether a config was written.
func RunSetupTUI(path string, log *zap.Logger) (bool, error) {
	final, err := tea.NewProgram(NewSetupTUI(path, log), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(SetupModel)
	return ok && m.step == SetupSuccess, nil
}

// HasConfig reports whether a config file can be found.
func HasConfig() bool {
	return findConfig() != ""
}
