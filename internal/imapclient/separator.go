package imapclient

import "strings"

// ToWire rewrites a '/'-delimited local path into the wire form that
// uses the namespace's separator character, per §4.3.5. sep == 0 or '/'
// is a no-op (server uses '/' itself).
func ToWire(localPath string, sep byte) string {
	if sep == 0 || sep == '/' {
		return localPath
	}
	return substituteOutsideEscapes(localPath, '/', sep)
}

// FromWire is ToWire's inverse, converting a server-reported mailbox
// name back to the internal '/'-delimited representation.
func FromWire(wireName string, sep byte) string {
	if sep == 0 || sep == '/' {
		return wireName
	}
	return substituteOutsideEscapes(wireName, sep, '/')
}

// substituteOutsideEscapes replaces every occurrence of from with to,
// except inside a modified UTF-7 "&...-" escape run, where the
// character must be left untouched even if it happens to match from.
func substituteOutsideEscapes(s string, from, to byte) string {
	var b strings.Builder
	b.Grow(len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inEscape && c == '&':
			inEscape = true
			b.WriteByte(c)
		case inEscape && c == '-':
			inEscape = false
			b.WriteByte(c)
		case !inEscape && c == from:
			b.WriteByte(to)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
