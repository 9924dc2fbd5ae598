package erp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeERP is an ERPNext stand-in. Routes are keyed by "METHOD /decoded/path".
type fakeERP struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	bodies map[string]map[string]interface{}
}

func newFakeERP(t *testing.T) (*fakeERP, *Client) {
	t.Helper()
	f := &fakeERP{
		t:      t,
		routes: map[string]http.HandlerFunc{},
		calls:  map[string]int{},
		bodies: map[string]map[string]interface{}{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	c := NewClient(&Config{
		ERPURL:          srv.URL,
		APIKey:          "key",
		APISecret:       "secret",
		NginxCookieName: "auth_cookie",
		Company:         "Acme Ltd",
		DefaultTax:      "18",
	})
	return f, c
}

func (f *fakeERP) handle(route string, h http.HandlerFunc) {
	f.routes[route] = h
}

// data answers with the {"data": v} envelope of /api/resource.
func (f *fakeERP) data(route string, v interface{}) {
	f.handle(route, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": v})
	})
}

func (f *fakeERP) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls[route]++
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if json.Unmarshal(raw, &body) == nil {
			f.bodies[route] = body
		}
	}
	h, ok := f.routes[route]
	f.mu.Unlock()

	if !ok {
		f.t.Logf("unexpected request %s", route)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"exc_type":"DoesNotExistError"}`))
		return
	}
	h(w, r)
}

func (f *fakeERP) called(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeERP) body(route string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".erp-config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFrom(t *testing.T) {
	path := writeConfig(t, `# ERPNext
ERP_URL=https://erp.example.com
ERP_API_KEY="abc"
ERP_API_SECRET='def'
ERP_COMPANY=Acme Ltd
ERP_REORDER_LEVEL=3
not a setting
`)

	config, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://erp.example.com", config.ERPURL)
	assert.Equal(t, "abc", config.APIKey)
	assert.Equal(t, "def", config.APISecret)
	assert.Equal(t, "Acme Ltd", config.Company)
	assert.Equal(t, 3.0, config.ReorderLevel)

	// defaults survive
	assert.Equal(t, "18", config.DefaultTax)
	assert.Equal(t, "Quote Desk", config.Brand)
	assert.Equal(t, 20.0, config.ReorderTarget)
	assert.Equal(t, "auth_cookie", config.NginxCookieName)
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "ERP_URL=https://erp.example.com\nERP_API_KEY=abc\nERP_API_SECRET=def\nERP_DEFAULT_TAX=18\n")
	t.Setenv("ERP_DEFAULT_TAX", "21")
	t.Setenv("ERP_URL", "https://other.example.com")

	config, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "21", config.DefaultTax)
	assert.Equal(t, "https://other.example.com", config.ERPURL)
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing credentials", "ERP_URL=https://erp.example.com\n", "missing required config"},
		{"bad number", "ERP_URL=x\nERP_API_KEY=a\nERP_API_SECRET=b\nERP_REORDER_TARGET=lots\n", "invalid ERP_REORDER_TARGET"},
		{"target below level", "ERP_URL=x\nERP_API_KEY=a\nERP_API_SECRET=b\nERP_REORDER_LEVEL=10\nERP_REORDER_TARGET=5\n", "must not be below"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFrom(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadLocalConfig_NoCredentialsNeeded(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("ERP_DEFAULT_TAX", "7")

	config, err := LoadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, "7", config.DefaultTax)
	assert.Empty(t, config.ERPURL)
}

func TestParseAPIResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"exception", 200, `{"exception":"frappe.exceptions.ValidationError"}`, "API error: frappe.exceptions.ValidationError"},
		{"server messages", 417, `{"_server_messages":"[\"{\\\"message\\\": \\\"Customer is mandatory\\\"}\"]"}`, "API error (HTTP 417): Customer is mandatory"},
		{"message", 403, `{"message":"Not permitted"}`, "API error (HTTP 403): Not permitted"},
		{"exc type", 404, `{"exc_type":"DoesNotExistError"}`, "API error (HTTP 404): DoesNotExistError"},
		{"html error", 502, `<html>Bad Gateway</html>`, "API error (HTTP 502): <html>Bad Gateway</html>"},
		{"bare status", 500, `{}`, "API error (HTTP 500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAPIResponse(tt.status, []byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	result, err := parseAPIResponse(200, []byte(`{"message":"admin@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", result["message"])
}

func TestListQueryEndpoint(t *testing.T) {
	q := listQuery{
		Doctype: "Sales Order",
		Fields:  []string{"name"},
		Filters: [][]interface{}{{"customer", "=", "Acme"}},
		OrderBy: "creation desc",
		Limit:   20,
	}

	endpoint, err := q.endpoint()
	require.NoError(t, err)
	assert.Equal(t,
		`Sales%20Order?limit_page_length=20&fields=%5B%22name%22%5D&filters=%5B%5B%22customer%22%2C%22%3D%22%2C%22Acme%22%5D%5D&order_by=creation+desc`,
		endpoint)
}

func TestClient_AuthHeaders(t *testing.T) {
	f, c := newFakeERP(t)
	c.Config.NginxCookie = "cookie-value"

	f.handle("POST /api/method/frappe.auth.get_logged_user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		if cookie, err := r.Cookie("auth_cookie"); assert.NoError(t, err) {
			assert.Equal(t, "cookie-value", cookie.Value)
		}
		w.Write([]byte(`{"message":"admin@example.com"}`))
	})

	user, err := c.LoggedUser()
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user)
}

func TestDetectConnection(t *testing.T) {
	vpn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"admin@example.com"}`))
	}))
	defer vpn.Close()

	c := NewClient(&Config{ERPURL: "https://erp.example.com", ERPVPN: vpn.URL})
	c.DetectConnection()
	assert.Equal(t, "vpn", c.Mode)
	assert.Equal(t, vpn.URL, c.ActiveURL)

	vpn.Close()
	c.DetectConnection()
	assert.Equal(t, "internet", c.Mode)
	assert.Equal(t, "https://erp.example.com", c.ActiveURL)
}

func TestDetectConnection_MalformedVPN(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewClient(&Config{ERPURL: "https://erp.example.com", ERPVPN: "http://bad host"})
	c.Logger = zap.New(core)

	require.NotPanics(t, c.DetectConnection)
	assert.Equal(t, "internet", c.Mode)
	assert.Equal(t, "https://erp.example.com", c.ActiveURL)
	assert.Equal(t, 1, logs.FilterMessage("invalid ERP_VPN, using ERP_URL").Len())
}

func TestFetch_NoData(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("GET /api/resource/Quotation/Q-404", nil)

	_, err := c.GetQuotation("Q-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data found")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Müll...", truncate("Müller GmbH", 4))
	assert.Equal(t, "Almacén...", truncate("Almacén Central", 7))
	assert.True(t, utf8.ValidString(truncate("ééééé", 3)))
}
