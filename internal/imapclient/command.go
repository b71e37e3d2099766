package imapclient

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// tagCounter issues monotonically increasing command tags, satisfying
// the "tag uniqueness" invariant for the lifetime of a connection.
// Modeled on pop3d's internal/server/limiter.go atomic-CAS counter,
// simplified here to a plain atomic.Int64 since there's no contention
// to arbitrate (one command in flight at a time, see worker.go).
type tagCounter struct {
	n atomic.Int64
}

// Next returns the next tag, formatted "A<n>" (A1, A2, ...).
func (c *tagCounter) Next() string {
	n := c.n.Add(1)
	return "A" + strconv.FormatInt(n, 10)
}

// quoteArg renders s as an IMAP quoted-string if it contains characters
// that would be ambiguous as an atom, otherwise returns it unchanged.
// Backslash and double-quote are escaped per RFC 3501 §4.3.
func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if isPlainAtom(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

func isPlainAtom(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c <= ' ' || c == 0x7f:
			return false
		case c == '"' || c == '\\' || c == '(' || c == ')' || c == '{' ||
			c == '%' || c == '*' || c == ']' || c == '[':
			return false
		}
	}
	return true
}

// redactLoginArgs replaces password-bearing arguments with a fixed
// placeholder before a command line is logged, e.g.
// `A1 LOGIN alice "secret"` -> `A1 LOGIN alice "***"`.
func redactLoginArgs(cmd string, nArgsToKeep int) string {
	fields := strings.Fields(cmd)
	keep := nArgsToKeep + 2 // tag + command name
	if len(fields) <= keep {
		return cmd
	}
	redacted := append([]string{}, fields[:keep]...)
	redacted = append(redacted, `"***"`)
	return strings.Join(redacted, " ")
}
