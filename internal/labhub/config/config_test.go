package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labhubd.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConf = `
format_version = "0.1.0"
server_port = "8290"

[backend]
base_url = "http://localhost:8000"

[session]
initial_ttl = "60m"
extend_increment = "30m"
max_lifetime = "120m"

[auth]
token_secret = "secret"
`

func TestLoadConfig(t *testing.T) {
	require.NoError(t, LoadConfig(writeConf(t, validConf)))

	c := Config()
	assert.Equal(t, "8290", c.ServerPort)
	assert.Equal(t, 30*time.Minute, c.Session.GetExtendIncrement())
	assert.Equal(t, 2*time.Hour, c.Session.GetMaxLifetime())
	assert.Equal(t, time.Minute, c.Session.GetSweepInterval())
	assert.Equal(t, 30*time.Second, c.Backend.GetRequestTimeout())
}

func TestLoadConfigMissingSessionSettings(t *testing.T) {
	conf := `
format_version = "0.1.0"
server_port = "8290"

[auth]
token_secret = "secret"
`
	err := LoadConfig(writeConf(t, conf))
	require.Error(t, err)
}

func TestLoadConfigInitialTTLOverCap(t *testing.T) {
	conf := `
format_version = "0.1.0"
server_port = "8290"

[session]
initial_ttl = "180m"
extend_increment = "30m"
max_lifetime = "120m"

[auth]
token_secret = "secret"
`
	err := LoadConfig(writeConf(t, conf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_lifetime")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE", "http://backend.test:9000")
	t.Setenv("LAMBDA_ANALYSIS_URL", "http://analysis.test")

	require.NoError(t, LoadConfig(writeConf(t, validConf)))
	assert.Equal(t, "http://backend.test:9000", Config().Backend.BaseURL)
	assert.Equal(t, "http://analysis.test", Config().Analysis.URL)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"30m", 30 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"", 0, true},
		{"m", 0, true},
		{"10x", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}
