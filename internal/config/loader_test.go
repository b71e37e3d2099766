package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/mailcore.toml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadValidTOML(t *testing.T) {
	content := `
log_level = "debug"
resolver = "subprocess"

[metrics]
enabled = true
address = ":9200"
path = "/custom-metrics"

[[accounts]]
name = "work"
protocol = "imap"
host = "imap.example.com"
security = "tls"
username = "alice"

[accounts.tls]
min_version = "1.3"

[[accounts]]
name = "list"
protocol = "nntp"
host = "news.example.com"
security = "starttls"
`

	path := createTempConfig(t, content)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ResolverSubprocess, cfg.Resolver)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9200", cfg.Metrics.Address)
	assert.Equal(t, "/custom-metrics", cfg.Metrics.Path)

	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "work", cfg.Accounts[0].Name)
	assert.Equal(t, ProtocolIMAP, cfg.Accounts[0].Protocol)
	assert.Equal(t, SecurityTunnel, cfg.Accounts[0].Security)
	assert.Equal(t, "1.3", cfg.Accounts[0].TLS.MinVersion)
	assert.Equal(t, ProtocolNNTP, cfg.Accounts[1].Protocol)
}

func TestLoadInvalidTOML(t *testing.T) {
	content := `
log_level = "debug
this is not valid toml
`
	path := createTempConfig(t, content)

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestLoadPartialConfig(t *testing.T) {
	content := `
log_level = "warn"
`
	path := createTempConfig(t, content)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)

	defaults := Default()
	assert.Equal(t, defaults.Resolver, cfg.Resolver)
	assert.Equal(t, defaults.Metrics.Address, cfg.Metrics.Address)
}

func TestLoadWithFlagsOverridesFile(t *testing.T) {
	content := `
log_level = "warn"
`
	path := createTempConfig(t, content)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Set("log_level", "debug"))
	require.NoError(t, fs.Set("config", path))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMetricsConfigPartial(t *testing.T) {
	content := `
[metrics]
enabled = true
`
	path := createTempConfig(t, content)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.True(t, cfg.Metrics.Enabled)

	defaults := Default()
	assert.Equal(t, defaults.Metrics.Address, cfg.Metrics.Address)
	assert.Equal(t, defaults.Metrics.Path, cfg.Metrics.Path)
}

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mailcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
