package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		Version:       "0.1.0",
		ServerURL:     "http://localhost:8290",
		Email:         "analyst@example.com",
		AccessToken:   "tok-123",
		ActiveSession: "2f4cbd37-9c4b-4e3a-8a6f-1d2c93f1a111",
		ActiveCVE:     "CVE-2021-44228",
	}
	require.NoError(t, cfg.WriteConfig(path))

	require.NoError(t, LoadConfig(path))
	loaded := GetConfig()
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadConfigRequiresServerURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"0.1.0\"\n"), 0600))

	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_url")
}

func TestNormalizeServerURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8290", normalizeServerURL("localhost:8290"))
	assert.Equal(t, "http://localhost:8290", normalizeServerURL("http://localhost:8290"))
	assert.Equal(t, "https://hub.example.com", normalizeServerURL("https://hub.example.com"))
}
