package erp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/logger"
)

// Colors for terminal output
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

// Errors returned by workflow operations. Callers check them with errors.Is.
var (
	ErrNotSubmitted         = errors.New("document must be submitted first")
	ErrNoItems              = errors.New("no items")
	ErrTaxSyncNotConfigured = errors.New("tax sync method not configured (set ERP_TAX_SYNC_METHOD)")
)

// Config holds the CLI configuration
type Config struct {
	ERPVPN          string
	ERPURL          string
	APIKey          string
	APISecret       string
	NginxCookie     string
	NginxCookieName string // Cookie name for reverse proxy auth (default: "auth_cookie")
	Company         string // Company name for document creation (auto-detected if empty)
	Brand           string // Branding shown in TUI (default: "Quote Desk")

	ServiceItem   string // Item code used for free-text quotation lines
	TaxAccount    string // Account head for per-line tax rates
	DefaultTax    string // Tax percent for new lines (default: "18")
	TaxSyncMethod string // Whitelisted method that pushes an invoice to the tax authority
	ReorderLevel  float64
	ReorderTarget float64
	TikaURL       string

	ServeAddr     string
	InternalToken string
	LogFile       string
	LogLevel      string
}

// configKeys lists every key the config file and the environment understand.
var configKeys = []string{
	"ERP_VPN", "ERP_URL", "ERP_API_KEY", "ERP_API_SECRET",
	"NGINX_COOKIE", "NGINX_COOKIE_NAME", "ERP_COMPANY", "ERP_BRAND",
	"ERP_SERVICE_ITEM", "ERP_TAX_ACCOUNT", "ERP_DEFAULT_TAX", "ERP_TAX_SYNC_METHOD",
	"ERP_REORDER_LEVEL", "ERP_REORDER_TARGET", "TIKA_URL",
	"SERVE_ADDR", "INTERNAL_TOKEN", "LOG_FILE", "LOG_LEVEL",
}

// Client handles API requests
type Client struct {
	Config     *Config
	HTTPClient *http.Client
	Logger     *zap.Logger
	ActiveURL  string
	Mode       string // "vpn" or "internet"
	Currency   *Currency
}

func defaultConfig() *Config {
	return &Config{
		NginxCookieName: "auth_cookie",
		Brand:           "Quote Desk",
		DefaultTax:      "18",
		ReorderLevel:    5,
		ReorderTarget:   20,
		ServeAddr:       ":8080",
		LogLevel:        "info",
	}
}

// LoadConfig finds and reads the .erp-config file. Environment variables
// with the same key names override file values.
func LoadConfig() (*Config, error) {
	configPath := findConfig()
	if configPath == "" {
		// Environment-only setups are fine as long as the required keys are there.
		config := defaultConfig()
		if err := config.applyEnv(); err != nil {
			return nil, err
		}
		if config.ERPURL == "" {
			return nil, fmt.Errorf("config file not found. Copy .erp-config.example to .erp-config")
		}
		return config, config.validate()
	}

	return LoadConfigFrom(configPath)
}

// LoadLocalConfig is LoadConfig for commands that never reach the ERP
// (price, serve): ERP credentials are not required.
func LoadLocalConfig() (*Config, error) {
	config := defaultConfig()
	if configPath := findConfig(); configPath != "" {
		if err := config.readFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, config.validateReorder()
}

func findConfig() string {
	configPaths := []string{
		".erp-config",
		"../.erp-config",
		filepath.Join(filepath.Dir(os.Args[0]), ".erp-config"),
		filepath.Join(filepath.Dir(os.Args[0]), "..", ".erp-config"),
	}

	for _, p := range configPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfigFrom reads a KEY=VALUE config file at path.
func LoadConfigFrom(path string) (*Config, error) {
	config := defaultConfig()
	if err := config.readFile(path); err != nil {
		return nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, config.validate()
}

func (config *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open config: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		if err := config.set(key, value); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}
	return nil
}

func (config *Config) applyEnv() error {
	for _, key := range configKeys {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if err := config.set(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (config *Config) set(key, value string) error {
	switch key {
	case "ERP_VPN":
		config.ERPVPN = value
	case "ERP_URL":
		config.ERPURL = value
	case "ERP_API_KEY":
		config.APIKey = value
	case "ERP_API_SECRET":
		config.APISecret = value
	case "NGINX_COOKIE":
		config.NginxCookie = value
	case "NGINX_COOKIE_NAME":
		if value != "" {
			config.NginxCookieName = value
		}
	case "ERP_COMPANY":
		config.Company = value
	case "ERP_BRAND":
		if value != "" {
			config.Brand = value
		}
	case "ERP_SERVICE_ITEM":
		config.ServiceItem = value
	case "ERP_TAX_ACCOUNT":
		config.TaxAccount = value
	case "ERP_DEFAULT_TAX":
		if value != "" {
			config.DefaultTax = value
		}
	case "ERP_TAX_SYNC_METHOD":
		config.TaxSyncMethod = value
	case "ERP_REORDER_LEVEL":
		n, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		config.ReorderLevel = n
	case "ERP_REORDER_TARGET":
		n, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		config.ReorderTarget = n
	case "TIKA_URL":
		config.TikaURL = value
	case "SERVE_ADDR":
		if value != "" {
			config.ServeAddr = value
		}
	case "INTERNAL_TOKEN":
		config.InternalToken = value
	case "LOG_FILE":
		config.LogFile = value
	case "LOG_LEVEL":
		if value != "" {
			config.LogLevel = value
		}
	}
	return nil
}

func parseConfigFloat(key, value string) (float64, error) {
	var n float64
	if _, err := fmt.Sscanf(value, "%g", &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func (config *Config) validate() error {
	if config.ERPURL == "" || config.APIKey == "" || config.APISecret == "" {
		return fmt.Errorf("missing required config: ERP_URL, ERP_API_KEY, ERP_API_SECRET")
	}
	return config.validateReorder()
}

func (config *Config) validateReorder() error {
	if config.ReorderTarget < config.ReorderLevel {
		return fmt.Errorf("ERP_REORDER_TARGET (%g) must not be below ERP_REORDER_LEVEL (%g)", config.ReorderTarget, config.ReorderLevel)
	}
	return nil
}

// NewClient creates a new API client
func NewClient(config *Config) *Client {
	return &Client{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Logger:    zap.NewNop(),
		ActiveURL: config.ERPURL,
		Mode:      "internet",
	}
}

// DetectConnection tries VPN first, falls back to internet
func (c *Client) DetectConnection() {
	if c.Config.ERPVPN != "" && c.vpnReachable() {
		c.Mode = "vpn"
		c.ActiveURL = c.Config.ERPVPN
		c.Logger.Debug("erp connection", zap.String("mode", c.Mode), zap.String("url", c.ActiveURL))
		return
	}

	c.Mode = "internet"
	c.ActiveURL = c.Config.ERPURL
	c.Logger.Debug("erp connection", zap.String("mode", c.Mode), zap.String("url", c.ActiveURL))
}

func (c *Client) vpnReachable() bool {
	req, err := http.NewRequest("GET", c.Config.ERPVPN+"/api/method/frappe.auth.get_logged_user", nil)
	if err != nil {
		c.Logger.Warn("invalid ERP_VPN, using ERP_URL", zap.String("vpn", c.Config.ERPVPN), zap.Error(err))
		return false
	}
	c.authorize(req, false)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) authorize(req *http.Request, withCookie bool) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.Config.APIKey, c.Config.APISecret))
	req.Header.Set("Accept", "application/json")
	if withCookie && c.Mode == "internet" && c.Config.NginxCookie != "" {
		req.AddCookie(&http.Cookie{Name: c.Config.NginxCookieName, Value: c.Config.NginxCookie})
	}
}

// do sends a JSON request to a full URL and returns the raw response body
// after checking it for ERPNext errors.
func (c *Client) do(method, fullURL string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, true)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("erp request failed",
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.Error(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.Logger.Debug("erp request",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("authorization", logger.MaskAuthorization(req.Header.Get("Authorization"))))

	if _, err := parseAPIResponse(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// Request makes an API request against /api/resource and returns the decoded
// response document.
func (c *Client) Request(method, endpoint string, body interface{}) (map[string]interface{}, error) {
	respBody, err := c.do(method, fmt.Sprintf("%s/api/resource/%s", c.ActiveURL, endpoint), body)
	if err != nil {
		return nil, err
	}
	return parseAPIResponse(http.StatusOK, respBody)
}

// fetch runs a resource request and decodes its "data" member into out.
func (c *Client) fetch(method, endpoint string, body, out interface{}) error {
	respBody, err := c.do(method, fmt.Sprintf("%s/api/resource/%s", c.ActiveURL, endpoint), body)
	if err != nil {
		return err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("no data found")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// CallMethod calls a whitelisted server method (/api/method/<name>).
func (c *Client) CallMethod(name string, body interface{}) (map[string]interface{}, error) {
	respBody, err := c.do("POST", fmt.Sprintf("%s/api/method/%s", c.ActiveURL, name), body)
	if err != nil {
		return nil, err
	}
	return parseAPIResponse(http.StatusOK, respBody)
}

// parseAPIResponse decodes a response document and turns ERPNext error
// payloads into Go errors.
func parseAPIResponse(status int, body []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		if status >= 400 {
			return nil, fmt.Errorf("API error (HTTP %d): %s", status, truncate(strings.TrimSpace(string(body)), 200))
		}
		return nil, fmt.Errorf("failed to parse response: %s", truncate(string(body), 200))
	}

	if exc, ok := result["exception"]; ok {
		return nil, fmt.Errorf("API error: %v", exc)
	}
	if status >= 400 {
		if msg := serverMessage(result); msg != "" {
			return nil, fmt.Errorf("API error (HTTP %d): %s", status, msg)
		}
		return nil, fmt.Errorf("API error (HTTP %d)", status)
	}

	return result, nil
}

// serverMessage extracts the human readable part of an ERPNext error.
func serverMessage(result map[string]interface{}) string {
	if raw, ok := result["_server_messages"].(string); ok && raw != "" {
		var msgs []string
		if err := json.Unmarshal([]byte(raw), &msgs); err == nil && len(msgs) > 0 {
			var inner struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal([]byte(msgs[0]), &inner); err == nil && inner.Message != "" {
				return inner.Message
			}
			return msgs[0]
		}
		return raw
	}
	if msg, ok := result["message"].(string); ok {
		return msg
	}
	if exc, ok := result["exc_type"].(string); ok {
		return exc
	}
	return ""
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// submitDocument submits a document using frappe.client.submit
func (c *Client) submitDocument(doctype, name string) error {
	body := map[string]interface{}{
		"doc": map[string]interface{}{
			"doctype": doctype,
			"name":    name,
		},
	}
	if _, err := c.CallMethod("frappe.client.submit", body); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	return nil
}

// cancelDocument cancels a document using frappe.client.cancel
func (c *Client) cancelDocument(doctype, name string) error {
	body := map[string]interface{}{
		"doctype": doctype,
		"name":    name,
	}
	if _, err := c.CallMethod("frappe.client.cancel", body); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	return nil
}

// GetCompany gets the company name from config or API
func (c *Client) GetCompany() (string, error) {
	if c.Config.Company != "" {
		return c.Config.Company, nil
	}

	var companies []struct {
		Name string `json:"name"`
	}
	if err := c.fetch("GET", "Company?limit_page_length=1", nil, &companies); err != nil {
		return "", err
	}
	if len(companies) == 0 || companies[0].Name == "" {
		return "", fmt.Errorf("no company found. Set ERP_COMPANY in config")
	}

	c.Config.Company = companies[0].Name
	return c.Config.Company, nil
}

// LoggedUser returns the user the API key belongs to.
func (c *Client) LoggedUser() (string, error) {
	result, err := c.CallMethod("frappe.auth.get_logged_user", nil)
	if err != nil {
		return "", err
	}
	if msg, ok := result["message"].(string); ok && msg != "" {
		return msg, nil
	}
	return "", fmt.Errorf("authentication failed: no user in response")
}

// CmdPing tests the connection
func (c *Client) CmdPing() error {
	fmt.Printf("%sTesting connection to ERP...%s\n", Blue, Reset)

	c.DetectConnection()

	user, err := c.LoggedUser()
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Printf("%s✓ Connection successful%s\n", Green, Reset)
	fmt.Printf("  Authenticated as: %s%s%s\n", Yellow, user, Reset)
	if c.Mode == "vpn" {
		fmt.Printf("  Mode: %sVPN direct%s (%s)\n", Cyan, Reset, c.ActiveURL)
	} else {
		fmt.Printf("  Mode: %sInternet%s (%s)\n", Yellow, Reset, c.ActiveURL)
	}
	return nil
}

// CmdConfig shows current configuration
func (c *Client) CmdConfig() error {
	fmt.Printf("%sCurrent configuration:%s\n", Blue, Reset)
	if c.Config.ERPVPN != "" {
		fmt.Printf("  VPN URL: %s\n", c.Config.ERPVPN)
	} else {
		fmt.Printf("  VPN URL: %snot configured%s\n", Yellow, Reset)
	}
	fmt.Printf("  Internet URL: %s\n", c.Config.ERPURL)
	fmt.Printf("  API Key: %s\n", logger.MaskAPIKey(c.Config.APIKey))
	fmt.Printf("  API Secret: ****\n")

	if c.Config.NginxCookie != "" {
		fmt.Printf("  Nginx Cookie: configured\n")
	} else {
		fmt.Printf("  Nginx Cookie: %snot configured%s (needed for internet mode)\n", Yellow, Reset)
	}

	if c.Config.Company != "" {
		fmt.Printf("  Company: %s\n", c.Config.Company)
	}

	fmt.Printf("\n  Default tax: %s%%\n", c.Config.DefaultTax)
	optional := []struct{ label, value string }{
		{"Service item", c.Config.ServiceItem},
		{"Tax account", c.Config.TaxAccount},
		{"Tax sync method", c.Config.TaxSyncMethod},
		{"Tika URL", c.Config.TikaURL},
	}
	for _, o := range optional {
		if o.value != "" {
			fmt.Printf("  %s: %s\n", o.label, o.value)
		} else {
			fmt.Printf("  %s: %snot configured%s\n", o.label, Yellow, Reset)
		}
	}
	fmt.Printf("  Reorder: below %g, up to %g\n", c.Config.ReorderLevel, c.Config.ReorderTarget)

	fmt.Println()
	c.DetectConnection()
	if c.Mode == "vpn" {
		fmt.Printf("  Active mode: %sVPN direct%s\n", Cyan, Reset)
	} else {
		fmt.Printf("  Active mode: %sInternet%s\n", Yellow, Reset)
	}
	fmt.Printf("  Active URL: %s\n", c.ActiveURL)

	return nil
}
