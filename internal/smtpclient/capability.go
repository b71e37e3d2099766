package smtpclient

import (
	"strconv"
	"strings"
)

// AuthMechanism names an SMTP AUTH mechanism advertised by EHLO.
type AuthMechanism string

const (
	AuthCRAMMD5   AuthMechanism = "CRAM-MD5"
	AuthDigestMD5 AuthMechanism = "DIGEST-MD5"
	AuthPlain     AuthMechanism = "PLAIN"
	AuthLogin     AuthMechanism = "LOGIN"
	AuthNone      AuthMechanism = ""
)

// Capabilities is the parsed EHLO response: the extension set a server
// advertises, re-parsed after STARTTLS the way imapclient re-parses
// CAPABILITY.
type Capabilities struct {
	raw            map[string]bool
	size           int64
	eightBitMime   bool
	authMechanisms map[AuthMechanism]bool
}

// ParseCapabilities parses the text lines of an EHLO reply (excluding
// the greeting line itself) into a Capabilities set.
func ParseCapabilities(lines []string) *Capabilities {
	c := &Capabilities{
		raw:            make(map[string]bool),
		authMechanisms: make(map[AuthMechanism]bool),
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToUpper(fields[0])
		c.raw[keyword] = true
		switch keyword {
		case "SIZE":
			if len(fields) > 1 {
				if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
					c.size = n
				}
			}
		case "8BITMIME":
			c.eightBitMime = true
		case "AUTH":
			for _, mech := range fields[1:] {
				c.authMechanisms[AuthMechanism(strings.ToUpper(mech))] = true
			}
		}
	}
	return c
}

// Has reports whether keyword was advertised.
func (c *Capabilities) Has(keyword string) bool {
	if c == nil {
		return false
	}
	return c.raw[strings.ToUpper(keyword)]
}

// Size returns the advertised maximum message size, or 0 if unadvertised.
func (c *Capabilities) Size() int64 {
	if c == nil {
		return 0
	}
	return c.size
}

// EightBitMime reports whether 8BITMIME was advertised.
func (c *Capabilities) EightBitMime() bool {
	if c == nil {
		return false
	}
	return c.eightBitMime
}

// PreferredAuth picks the strongest advertised mechanism in the order
// CRAM-MD5 > DIGEST-MD5 > PLAIN > LOGIN, unless forced overrides it
// (forced still must be advertised).
func (c *Capabilities) PreferredAuth(forced AuthMechanism) AuthMechanism {
	if c == nil {
		return AuthNone
	}
	if forced != AuthNone {
		if c.authMechanisms[forced] {
			return forced
		}
		return AuthNone
	}
	for _, mech := range []AuthMechanism{AuthCRAMMD5, AuthDigestMD5, AuthPlain, AuthLogin} {
		if c.authMechanisms[mech] {
			return mech
		}
	}
	return AuthNone
}
