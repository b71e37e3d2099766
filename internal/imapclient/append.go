package imapclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/infodancer/mailcore/internal/imapclient/mutf7"
)

// AppendResult reports the outcome of an APPEND. With a server-returned
// APPENDUID response code (when UIDPLUS is cached), UID and UIDValidity
// both come from it; otherwise UID comes from the heuristic described
// in §4.3.11 (best-effort only, per spec §9) and UIDValidity is 0.
type AppendResult struct {
	UID           uint32
	UIDValidity   int64
	FromAPPENDUID bool
}

var appenduidRe = regexp.MustCompile(`(?i)APPENDUID\s+(\d+)\s+(\d+)`)

// Append uploads body (an RFC 5322 message) to mbox with the given
// flags, canonicalizing every line ending to CRLF as it streams. It
// waits for the "+" continuation before sending the literal body, per
// §4.3.11.
func (cl *Client) Append(ctx context.Context, mbox string, flags IMAPFlags, internalDate string, body io.Reader) (AppendResult, error) {
	canon, n, err := canonicalizeCRLF(body)
	if err != nil {
		return AppendResult{}, fmt.Errorf("imapclient: canonicalizing APPEND body: %w", err)
	}

	var result AppendResult
	err = cl.exclusive(func() error {
		wire := ToWire(mutf7.Encode(mbox), cl.separator)
		tag := cl.tags.Next()
		var cmd strings.Builder
		cmd.WriteString(tag)
		cmd.WriteString(" APPEND ")
		cmd.WriteString(quoteArg(wire))
		if kws := flags.wireKeywords(); len(kws) > 0 {
			cmd.WriteString(" (")
			cmd.WriteString(strings.Join(kws, " "))
			cmd.WriteString(")")
		}
		if internalDate != "" {
			cmd.WriteString(" ")
			cmd.WriteString(quoteArg(internalDate))
		}
		fmt.Fprintf(&cmd, " {%d}", n)

		prevUIDNext := int64(0)
		if cl.selected != nil && cl.selected.Name == mbox {
			prevUIDNext = cl.selected.UIDNext
		}

		if err := cl.writeCommand(ctx, cmd.String()); err != nil {
			return err
		}

		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return err
		}
		if !line.IsContinuation() {
			return fmt.Errorf("imapclient: APPEND not given continuation: %s", line.Raw)
		}

		if err := cl.Base.Socket.WriteAll(canon); err != nil {
			return err
		}
		if err := cl.Base.Socket.WriteString("\r\n"); err != nil {
			return err
		}

		for {
			tagged, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return err
			}
			if tagged.Tag != tag {
				continue
			}
			if responseStatus(tagged) != StatusOK {
				return fmt.Errorf("imapclient: APPEND failed: %s", tagged.Raw)
			}
			result = parseAppendResult(tagged.Raw, cl.caps.UIDPlus(), prevUIDNext)
			return nil
		}
	})
	if err != nil {
		return AppendResult{}, err
	}
	return result, nil
}

func parseAppendResult(raw string, uidplus bool, prevUIDNext int64) AppendResult {
	if uidplus {
		if m := appenduidRe.FindStringSubmatch(raw); m != nil {
			validity, _ := strconv.ParseInt(m[1], 10, 64)
			uid, _ := strconv.ParseUint(m[2], 10, 32)
			return AppendResult{UID: uint32(uid), UIDValidity: validity, FromAPPENDUID: true}
		}
	}
	// Heuristic fallback: new_uid = prior UIDNEXT (pre-append), then the
	// caller increments by one per subsequent APPEND in the same batch.
	uid := prevUIDNext
	if uid <= 0 {
		uid = 1
	}
	return AppendResult{UID: uint32(uid), FromAPPENDUID: false}
}

// canonicalizeCRLF rewrites every line ending in r to CRLF and returns
// the result along with its exact byte length, needed up front for the
// {N} literal size marker.
func canonicalizeCRLF(r io.Reader) ([]byte, int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var buf bytes.Buffer
	for scanner.Scan() {
		buf.Write(scanner.Bytes())
		buf.WriteString("\r\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), int64(buf.Len()), nil
}
