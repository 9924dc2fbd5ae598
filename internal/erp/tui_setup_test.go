package erp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWith(t *testing.T, path string, values map[string]string) SetupModel {
	t.Helper()
	m := NewSetupTUI(path, nil)
	for i, f := range m.fields {
		if v, ok := values[f.key]; ok {
			m.inputs[i].SetValue(v)
		}
	}
	return m
}

func TestSetup_ConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".erp-config")
	m := setupWith(t, path, map[string]string{
		"ERP_URL":          "https://erp.example.com/",
		"ERP_API_KEY":      "abc",
		"ERP_API_SECRET":   "def",
		"NGINX_COOKIE":     "xyz",
		"ERP_SERVICE_ITEM": "SERVICE",
		"ERP_DEFAULT_TAX":  "16",
	})

	config, err := m.config()
	require.NoError(t, err)
	assert.Equal(t, "https://erp.example.com", config.ERPURL)

	msg := m.saveConfig(config)()
	saved, ok := msg.(setupSaveMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://erp.example.com", loaded.ERPURL)
	assert.Equal(t, "abc", loaded.APIKey)
	assert.Equal(t, "def", loaded.APISecret)
	assert.Equal(t, "xyz", loaded.NginxCookie)
	assert.Equal(t, "auth_cookie", loaded.NginxCookieName)
	assert.Equal(t, "SERVICE", loaded.ServiceItem)
	assert.Equal(t, "16", loaded.DefaultTax)
	assert.Empty(t, loaded.TikaURL)
}

func TestSetup_ConfigErrors(t *testing.T) {
	m := setupWith(t, "", map[string]string{"ERP_URL": "https://erp.example.com"})
	_, err := m.config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")

	m = setupWith(t, "", map[string]string{
		"ERP_URL":         "https://erp.example.com",
		"ERP_API_KEY":     "abc",
		"ERP_API_SECRET":  "def",
		"ERP_DEFAULT_TAX": "sixteen",
	})
	_, err = m.config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default tax must be a number")
}

func TestRenderConfig_CommentsEmptyKeys(t *testing.T) {
	config := defaultConfig()
	config.ERPURL = "https://erp.example.com"

	out := renderConfig(config, []string{"ERP_URL", "ERP_VPN"})
	assert.Contains(t, out, "ERP_URL=https://erp.example.com\n")
	assert.Contains(t, out, "# ERP_VPN=\n")
	assert.NotContains(t, out, "NGINX_COOKIE_NAME")
}
