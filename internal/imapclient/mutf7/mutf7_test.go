package mutf7

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"INBOX",
		"Sent Items",
		"Entwürfe",       // "Entwürfe"
		"日本語",  // Japanese
		"a&b",
		"100% done",
	}
	for _, name := range cases {
		encoded := Encode(name)
		decoded := Decode(encoded)
		assert.Equal(t, name, decoded, "round trip for %q via %q", name, encoded)
	}
}

func TestEncodeAmpersandEscape(t *testing.T) {
	assert.Equal(t, "Q&-A", Encode("Q&A"))
}

func TestEncodeASCIIPassthrough(t *testing.T) {
	assert.Equal(t, "INBOX", Encode("INBOX"))
	assert.Equal(t, "INBOX", Decode("INBOX"))
}

func TestDecodeKnownVector(t *testing.T) {
	// "Entwürfe" encoded per RFC 3501 modified UTF-7.
	decoded := Decode("Entw&APw-rfe")
	assert.Equal(t, "Entwürfe", decoded)
}

func TestDecodeMalformedFallsBackToInput(t *testing.T) {
	malformed := "&!!!-rest"
	assert.Equal(t, malformed, Decode(malformed))
}
