package nntpclient

import (
	"context"
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// OverviewEntry is one tab-delimited XOVER line, decoded per RFC 3977
// §8.3: number, subject, from, date, message-id, references, byte size,
// line count.
type OverviewEntry struct {
	Number     int64
	Subject    string
	From       string
	Date       string
	MessageID  string
	References []string
	Bytes      int64
	Lines      int64

	// To and Cc are populated by AttachToCc, which issues separate
	// XHDR requests since XOVER's fixed column set omits them.
	To string
	Cc string
}

var headerDecoder = new(mime.WordDecoder)

// XOver fetches the overview database for the article range [low,high]
// via XOVER low-high.
func (cl *Client) XOver(ctx context.Context, low, high int64) ([]OverviewEntry, error) {
	resp, err := cl.command(ctx, fmt.Sprintf("XOVER %d-%d", low, high))
	if err != nil {
		return nil, err
	}
	if resp.Code != 224 {
		return nil, fmt.Errorf("nntpclient: XOVER failed: %d %s", resp.Code, resp.Text)
	}
	lines, err := readMultiline(ctx, cl.Base)
	if err != nil {
		return nil, err
	}
	entries := make([]OverviewEntry, 0, len(lines))
	for _, line := range lines {
		entry, ok := parseOverviewLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseOverviewLine(line string) (OverviewEntry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return OverviewEntry{}, false
	}
	number, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return OverviewEntry{}, false
	}
	bytes, _ := strconv.ParseInt(fields[6], 10, 64)
	linesCount, _ := strconv.ParseInt(fields[7], 10, 64)
	return OverviewEntry{
		Number:     number,
		Subject:    decodeHeader(fields[1]),
		From:       decodeHeader(fields[2]),
		Date:       fields[3],
		MessageID:  extractMessageID(fields[4]),
		References: strings.Fields(fields[5]),
		Bytes:      bytes,
		Lines:      linesCount,
	}, true
}

// decodeHeader unfolds RFC 2047 encoded-words to UTF-8, returning the
// raw input unchanged if it isn't encoded-word text.
func decodeHeader(s string) string {
	decoded, err := headerDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// extractMessageID strips surrounding whitespace from a <msg-id> token;
// XOVER message-id fields are sometimes padded by misbehaving servers.
func extractMessageID(s string) string {
	return strings.TrimSpace(s)
}
