package nntpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// XHdr fetches a single header field (typically "to" or "cc", which
// XOVER's fixed column set omits) for the article range [low,high] via
// XHDR header low-high, returning a map keyed by article number.
func (cl *Client) XHdr(ctx context.Context, header string, low, high int64) (map[int64]string, error) {
	resp, err := cl.command(ctx, fmt.Sprintf("XHDR %s %d-%d", header, low, high))
	if err != nil {
		return nil, err
	}
	if resp.Code != 221 {
		return nil, fmt.Errorf("nntpclient: XHDR %s failed: %d %s", header, resp.Code, resp.Text)
	}
	lines, err := readMultiline(ctx, cl.Base)
	if err != nil {
		return nil, err
	}
	values := make(map[int64]string, len(lines))
	for _, line := range lines {
		num, value, ok := parseXHdrLine(line)
		if !ok {
			continue
		}
		values[num] = decodeHeader(value)
	}
	return values, nil
}

func parseXHdrLine(line string) (int64, string, bool) {
	num, rest, found := strings.Cut(line, " ")
	if !found {
		return 0, "", false
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, rest, true
}

// AttachToCc fetches "to" and "cc" headers for the overview entries'
// article range and merges them in positionally by article number.
// XHDR mismatches (an article present in one map but not the other)
// are not fatal: the corresponding field is simply left empty, per
// §4.4's "positionally aligned to the last XOVER list" rule.
func (cl *Client) AttachToCc(ctx context.Context, entries []OverviewEntry) error {
	if len(entries) == 0 {
		return nil
	}
	low, high := entries[0].Number, entries[0].Number
	for _, e := range entries {
		if e.Number < low {
			low = e.Number
		}
		if e.Number > high {
			high = e.Number
		}
	}

	toValues, err := cl.XHdr(ctx, "to", low, high)
	if err != nil {
		return err
	}
	ccValues, err := cl.XHdr(ctx, "cc", low, high)
	if err != nil {
		return err
	}

	for i := range entries {
		if v, ok := toValues[entries[i].Number]; ok {
			entries[i].To = v
		}
		if v, ok := ccValues[entries[i].Number]; ok {
			entries[i].Cc = v
		}
	}
	return nil
}
