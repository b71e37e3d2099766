package imapclient

import "strings"

// AuthMechanism names an AUTHENTICATE SASL mechanism, or the bare LOGIN
// command when no SASL mechanism is usable.
type AuthMechanism string

const (
	AuthCRAMMD5   AuthMechanism = "CRAM-MD5"
	AuthDigestMD5 AuthMechanism = "DIGEST-MD5"
	AuthPlain     AuthMechanism = "PLAIN"
	AuthLogin     AuthMechanism = "LOGIN" // the bare LOGIN command, not AUTHENTICATE
	AuthNone      AuthMechanism = ""
)

// Capabilities holds a session's cached CAPABILITY response, re-fetched
// after STARTTLS per §4.3.3 (capabilities a server advertises pre-TLS
// cannot be trusted once the channel is encrypted).
type Capabilities struct {
	raw            map[string]bool
	loginDisabled  bool
	uidplus        bool
	authMechanisms map[AuthMechanism]bool
}

// ParseCapabilities splits a CAPABILITY response line's atoms (as
// already tokenized by the response parser) into a Capabilities set.
func ParseCapabilities(atoms []string) *Capabilities {
	c := &Capabilities{
		raw:            make(map[string]bool, len(atoms)),
		authMechanisms: make(map[AuthMechanism]bool),
	}
	for _, a := range atoms {
		up := strings.ToUpper(a)
		c.raw[up] = true
		switch {
		case up == "LOGINDISABLED":
			c.loginDisabled = true
		case up == "UIDPLUS":
			c.uidplus = true
		case strings.HasPrefix(up, "AUTH="):
			c.authMechanisms[AuthMechanism(strings.TrimPrefix(up, "AUTH="))] = true
		}
	}
	return c
}

// Has reports whether the server advertised the given capability atom
// (case-insensitive), e.g. "NAMESPACE" or "IDLE".
func (c *Capabilities) Has(name string) bool {
	if c == nil {
		return false
	}
	return c.raw[strings.ToUpper(name)]
}

// UIDPlus reports whether the server advertised UIDPLUS, gating
// APPENDUID-based UID reporting in append.go.
func (c *Capabilities) UIDPlus() bool {
	return c != nil && c.uidplus
}

// PreferredAuth picks the strongest usable mechanism per §4.3.3's
// ordering CRAM-MD5 > DIGEST-MD5 > PLAIN > LOGIN, with LOGINDISABLED
// vetoing the bare LOGIN command. Returns AuthNone if nothing is usable.
func (c *Capabilities) PreferredAuth(forced AuthMechanism) AuthMechanism {
	if c == nil {
		return AuthNone
	}
	if forced != AuthNone {
		if forced == AuthLogin {
			if !c.loginDisabled {
				return AuthLogin
			}
			return AuthNone
		}
		if c.authMechanisms[forced] {
			return forced
		}
		return AuthNone
	}

	for _, m := range []AuthMechanism{AuthCRAMMD5, AuthDigestMD5, AuthPlain} {
		if c.authMechanisms[m] {
			return m
		}
	}
	if !c.loginDisabled {
		return AuthLogin
	}
	return AuthNone
}
