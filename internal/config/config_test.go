package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ResolverSync, cfg.Resolver)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
	assert.Empty(t, cfg.Accounts)
}

func TestEnsureDefaults(t *testing.T) {
	cfg := Config{
		Accounts: []Account{{Name: "work", Protocol: ProtocolIMAP, Host: "imap.example.com"}},
	}
	cfg.EnsureDefaults()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ResolverSync, cfg.Resolver)
	assert.Equal(t, "1.2", cfg.Accounts[0].TLS.MinVersion)
}

func TestDefaultPort(t *testing.T) {
	cases := []struct {
		proto Protocol
		sec   Security
		want  int
	}{
		{ProtocolIMAP, SecurityNone, 143},
		{ProtocolIMAP, SecurityStartTLS, 143},
		{ProtocolIMAP, SecurityTunnel, 993},
		{ProtocolNNTP, SecurityNone, 119},
		{ProtocolNNTP, SecurityTunnel, 563},
		{ProtocolSMTP, SecurityNone, 25},
		{ProtocolSMTP, SecurityTunnel, 465},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DefaultPort(c.proto, c.sec))
	}
}

func TestAccountEffectivePort(t *testing.T) {
	a := Account{Protocol: ProtocolIMAP, Security: SecurityTunnel}
	assert.Equal(t, 993, a.EffectivePort())

	a.Port = 1993
	assert.Equal(t, 1993, a.EffectivePort())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config with no accounts",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid account",
			modify: func(c *Config) {
				c.Accounts = []Account{{Name: "a", Protocol: ProtocolIMAP, Host: "h", Security: SecurityStartTLS}}
			},
			wantErr: false,
		},
		{
			name: "account missing host",
			modify: func(c *Config) {
				c.Accounts = []Account{{Name: "a", Protocol: ProtocolIMAP, Security: SecurityNone}}
			},
			wantErr: true,
		},
		{
			name: "account invalid protocol",
			modify: func(c *Config) {
				c.Accounts = []Account{{Name: "a", Protocol: "pop3", Host: "h", Security: SecurityNone}}
			},
			wantErr: true,
		},
		{
			name: "account invalid security",
			modify: func(c *Config) {
				c.Accounts = []Account{{Name: "a", Protocol: ProtocolIMAP, Host: "h", Security: "bogus"}}
			},
			wantErr: true,
		},
		{
			name: "account invalid socks type",
			modify: func(c *Config) {
				c.Accounts = []Account{{
					Name: "a", Protocol: ProtocolIMAP, Host: "h", Security: SecurityNone,
					Socks: &SocksConfig{Type: "socks3"},
				}}
			},
			wantErr: true,
		},
		{
			name: "invalid resolver strategy",
			modify: func(c *Config) {
				c.Resolver = "magic"
			},
			wantErr: true,
		},
		{
			name: "metrics enabled without address",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFindAccount(t *testing.T) {
	cfg := Default()
	cfg.Accounts = []Account{
		{Name: "work", Protocol: ProtocolIMAP, Host: "imap.example.com"},
		{Name: "news", Protocol: ProtocolNNTP, Host: "news.example.com"},
	}

	a, ok := cfg.FindAccount("news")
	require.True(t, ok)
	assert.Equal(t, "news.example.com", a.Host)

	_, ok = cfg.FindAccount("missing")
	assert.False(t, ok)
}

func TestTimeoutDefaults(t *testing.T) {
	var ts TimeoutSettings
	assert.Equal(t, 30*time.Second, ts.ConnectTimeout())
	assert.Equal(t, 60*time.Second, ts.IOTimeout())
	assert.Equal(t, 30*time.Minute, ts.IdleTimeout())

	ts = TimeoutSettings{Connect: "5s", IO: "garbage", Idle: "1h"}
	assert.Equal(t, 5*time.Second, ts.ConnectTimeout())
	assert.Equal(t, 60*time.Second, ts.IOTimeout())
	assert.Equal(t, time.Hour, ts.IdleTimeout())
}

func TestMinTLSVersion(t *testing.T) {
	var ts TLSSettings
	assert.Equal(t, minTLSVersions["1.2"], ts.MinTLSVersion())

	ts.MinVersion = "1.3"
	assert.Equal(t, minTLSVersions["1.3"], ts.MinTLSVersion())
}
