package imapclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/infodancer/mailcore/internal/imapclient/seqset"
)

// Envelope holds one UID FETCH (UID FLAGS RFC822.SIZE RFC822.HEADER)
// response; HeaderBytes is handed to an external RFC 5322 header parser
// rather than decoded here.
type Envelope struct {
	UID         uint32
	Flags       IMAPFlags
	Size        int64
	HeaderBytes []byte
}

// ProgressFunc reports (count, total) no more often than once per the
// caller-configured interval; FetchEnvelopes also checks ctx between
// every envelope so callers can cancel a long fetch promptly.
type ProgressFunc func(count, total int)

// defaultProgressInterval matches §4.3.9's "every 200 ms of elapsed time".
const defaultProgressInterval = 200 * time.Millisecond

// FetchEnvelopes issues UID FETCH <set> (UID FLAGS RFC822.SIZE
// RFC822.HEADER) across one or more sequence-set pieces (uids may
// exceed a single piece's 1000-char cap) and returns every parsed
// envelope. Responses arrive out of order per §4.3.9 and are returned
// in server arrival order, not UID order.
func (cl *Client) FetchEnvelopes(ctx context.Context, uids []uint32, progress ProgressFunc) ([]Envelope, error) {
	return cl.fetchEnvelopesEvery(ctx, uids, progress, defaultProgressInterval)
}

func (cl *Client) fetchEnvelopesEvery(ctx context.Context, uids []uint32, progress ProgressFunc, interval time.Duration) ([]Envelope, error) {
	total := len(uids)
	var out []Envelope
	lastReport := time.Time{}

	report := func(force bool) {
		if progress == nil {
			return
		}
		if force || lastReport.IsZero() || time.Since(lastReport) >= interval {
			progress(len(out), total)
			lastReport = time.Now()
		}
	}

	err := cl.exclusive(func() error {
		for _, piece := range seqset.Build(uids, 0) {
			tag := cl.tags.Next()
			cmd := tag + " UID FETCH " + piece + " (UID FLAGS RFC822.SIZE RFC822.HEADER)"
			if err := cl.writeCommand(ctx, cmd); err != nil {
				return err
			}

			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				line, err := ReadLine(ctx, cl.Base)
				if err != nil {
					return err
				}
				if line.Tag == tag {
					if responseStatus(line) != StatusOK {
						return fmt.Errorf("imapclient: UID FETCH envelopes failed: %s", line.Raw)
					}
					break
				}
				if env, ok := parseEnvelopeLine(line); ok {
					out = append(out, env)
					report(false)
				}
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	report(true)
	return out, nil
}

func parseEnvelopeLine(line *Line) (Envelope, bool) {
	if !line.IsUntagged() || len(line.Tokens) < 3 || !strings.EqualFold(line.Tokens[1].Str, "FETCH") {
		return Envelope{}, false
	}
	list := line.Tokens[2]
	if list.Kind != TokenList {
		return Envelope{}, false
	}
	var e Envelope
	for i := 0; i+1 < len(list.Items); i += 2 {
		key := strings.ToUpper(list.Items[i].Str)
		val := list.Items[i+1]
		switch key {
		case "UID":
			e.UID = uint32(val.Num)
		case "FLAGS":
			e.Flags = parseFlagList(val.Items)
		case "RFC822.SIZE":
			e.Size = val.Num
		case "RFC822.HEADER":
			e.HeaderBytes = []byte(val.Str)
		}
	}
	return e, e.UID != 0
}

// FetchBody streams a single message's BODY.PEEK[] literal straight to
// dst without buffering it in memory (§4.3.10, the >1MiB boundary
// case). A short literal, missing closing paren, or non-OK tagged
// response returns an error; callers must not treat a partially
// written dst as a valid cache entry on error.
func (cl *Client) FetchBody(ctx context.Context, uid uint32, dst io.Writer) error {
	return cl.exclusive(func() error {
		tag := cl.tags.Next()
		cmd := fmt.Sprintf("%s UID FETCH %d BODY.PEEK[]", tag, uid)
		if err := cl.writeCommand(ctx, cmd); err != nil {
			return err
		}

		raw, err := cl.Base.Socket.Gets()
		if err != nil {
			return fmt.Errorf("imapclient: reading FETCH BODY.PEEK response: %w", err)
		}
		n, ok := literalMarker(raw)
		if !ok {
			return fmt.Errorf("imapclient: FETCH BODY.PEEK response carried no literal: %q", raw)
		}
		if err := StreamLiteral(cl.Base.Socket, n, dst); err != nil {
			return err
		}

		closing, err := cl.Base.Socket.Gets()
		if err != nil {
			return fmt.Errorf("imapclient: reading line after body literal: %w", err)
		}
		if !strings.HasPrefix(strings.TrimSpace(closing), ")") {
			return fmt.Errorf("imapclient: FETCH BODY.PEEK missing closing paren, got %q", closing)
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return fmt.Errorf("imapclient: reading FETCH BODY.PEEK tagged completion: %w", err)
			}
			if line.Tag == tag {
				if responseStatus(line) != StatusOK {
					return fmt.Errorf("imapclient: FETCH BODY.PEEK failed: %s", line.Raw)
				}
				return nil
			}
		}
	})
}
