// Package mutf7 implements the modified UTF-7 mailbox name encoding
// RFC 3501 §5.1.3 mandates, the same transform Sylpheed's
// imap_utf8_to_modified_utf7 / imap_modified_utf7_to_utf8 perform: a
// shift-based encoding where '&' introduces a base64 run of UTF-16BE
// code units and '/' is replaced by ',' to keep the alphabet IMAP-safe.
package mutf7

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// modifiedEncoding is RFC 3501's base64 alphabet: standard base64 with
// ',' in place of '/' and no padding.
var modifiedEncoding = base64.NewEncoding(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,",
).WithPadding(base64.NoPadding)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Encode converts a UTF-8 mailbox name to modified UTF-7. It is total:
// malformed UTF-8 input is passed through rune-by-rune using
// utf8.RuneError's replacement behavior rather than returning an error,
// matching the codec's "never fail" contract.
func Encode(name string) string {
	var b strings.Builder
	var run []rune

	flush := func() {
		if len(run) == 0 {
			return
		}
		encodeRun(&b, run)
		run = run[:0]
	}

	for _, r := range name {
		if r == '&' {
			flush()
			b.WriteString("&-")
			continue
		}
		if r >= 0x20 && r <= 0x7e {
			flush()
			b.WriteRune(r)
			continue
		}
		run = append(run, r)
	}
	flush()
	return b.String()
}

func encodeRun(b *strings.Builder, run []rune) {
	enc := utf16be.NewEncoder()
	utf16Bytes, err := enc.String(string(run))
	if err != nil {
		// Total function contract: fall back to emitting the runes
		// verbatim rather than propagating an error.
		for _, r := range run {
			b.WriteRune(r)
		}
		return
	}
	b.WriteByte('&')
	b.WriteString(modifiedEncoding.EncodeToString([]byte(utf16Bytes)))
	b.WriteByte('-')
}

// Decode converts a modified UTF-7 mailbox name to UTF-8. On any
// malformed shift sequence it logs a warning and returns the original
// string unchanged rather than erroring, per spec: the codec must
// never panic or fail a caller that merely wants to display a name.
func Decode(name string) string {
	out, err := decode(name)
	if err != nil {
		slog.Default().Warn("mutf7: decode failed, returning input unchanged",
			"input", name, "error", err)
		return name
	}
	return out
}

func decode(name string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(name) {
		c := name[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}
		// '&' shift sequence.
		if i+1 < len(name) && name[i+1] == '-' {
			b.WriteByte('&')
			i += 2
			continue
		}
		j := i + 1
		for j < len(name) && name[j] != '-' {
			j++
		}
		encoded := name[i+1 : j]
		raw, err := modifiedEncoding.DecodeString(encoded)
		if err != nil {
			return "", err
		}
		dec := utf16be.NewDecoder()
		text, err := dec.String(string(raw))
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		if j < len(name) {
			j++ // consume trailing '-'
		}
		i = j
	}
	return b.String(), nil
}
