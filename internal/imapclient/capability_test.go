package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCapabilitiesAndHas(t *testing.T) {
	c := ParseCapabilities([]string{"IMAP4rev1", "AUTH=CRAM-MD5", "UIDPLUS", "NAMESPACE"})
	assert.True(t, c.Has("namespace"))
	assert.True(t, c.UIDPlus())
	assert.False(t, c.Has("IDLE"))
}

func TestPreferredAuthOrdering(t *testing.T) {
	c := ParseCapabilities([]string{"AUTH=PLAIN", "AUTH=CRAM-MD5"})
	assert.Equal(t, AuthCRAMMD5, c.PreferredAuth(AuthNone))
}

func TestPreferredAuthFallsBackToLogin(t *testing.T) {
	c := ParseCapabilities([]string{"IMAP4rev1"})
	assert.Equal(t, AuthLogin, c.PreferredAuth(AuthNone))
}

func TestPreferredAuthLoginDisabled(t *testing.T) {
	c := ParseCapabilities([]string{"LOGINDISABLED"})
	assert.Equal(t, AuthNone, c.PreferredAuth(AuthNone))
}

func TestPreferredAuthForced(t *testing.T) {
	c := ParseCapabilities([]string{"AUTH=CRAM-MD5", "AUTH=PLAIN"})
	assert.Equal(t, AuthPlain, c.PreferredAuth(AuthPlain))
	assert.Equal(t, AuthNone, c.PreferredAuth(AuthDigestMD5))
}

func TestPreferredAuthForcedLogin(t *testing.T) {
	c := ParseCapabilities([]string{"LOGINDISABLED"})
	assert.Equal(t, AuthNone, c.PreferredAuth(AuthLogin))
}

func TestNilCapabilities(t *testing.T) {
	var c *Capabilities
	assert.False(t, c.Has("ANY"))
	assert.False(t, c.UIDPlus())
	assert.Equal(t, AuthNone, c.PreferredAuth(AuthNone))
}
