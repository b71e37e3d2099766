// Package queue parses queued-message files and dispatches them to
// the SMTP and NNTP clients.
package queue

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// QueueInfo is the parsed header of a queued-message file (§6.1).
type QueueInfo struct {
	Sender         string
	SMTPServerHint string
	NNTPServerHint string
	Recipients     []string
	AccountID      int
	ReplyTarget    string
	ForwardTargets []string
	MessageID      string
	Newsgroups     []string
}

// reservedKeys are accepted in the header block but carry no meaning
// for this dispatcher; they are parsed only so an unrecognized key
// doesn't trip ParseQueuedFile into an error.
var reservedKeys = map[string]bool{
	"SSH": true, "RQ": true, "AF": true, "NF": true, "PS": true,
	"SRH": true, "SFN": true, "DSR": true, "CFG": true, "PT": true,
}

// ParseQueuedFile splits data into the leading `KEY:value` header
// block (terminated by the mandatory blank line) and the remaining
// RFC 5322 message body. The body is returned as a byte slice rather
// than a reader so callers can construct a fresh reader from it more
// than once (the send dispatcher does: once for SMTP, once to POST
// the same message to a newsgroup).
func ParseQueuedFile(data []byte) (*QueueInfo, []byte, error) {
	info := &QueueInfo{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	consumed := 0
	sawBlank := false
	for scanner.Scan() {
		line := scanner.Text()
		consumed += len(line) + 1 // +1 for the newline the scanner stripped
		if line == "" {
			sawBlank = true
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, nil, fmt.Errorf("queue: malformed header line %q", line)
		}
		if reservedKeys[key] {
			continue
		}
		switch key {
		case "S":
			info.Sender = value
		case "SSV":
			info.SMTPServerHint = value
		case "NSV":
			info.NNTPServerHint = value
		case "R":
			info.Recipients = splitNonEmpty(value, ",")
		case "AID":
			id, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("queue: invalid AID %q: %w", value, err)
			}
			info.AccountID = id
		case "REP":
			info.ReplyTarget = value
		case "FWD":
			info.ForwardTargets = append(info.ForwardTargets, value)
		case "MID":
			info.MessageID = value
		case "NG":
			info.Newsgroups = splitNonEmpty(value, ",")
		default:
			return nil, nil, fmt.Errorf("queue: unrecognized header key %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("queue: reading header: %w", err)
	}
	if !sawBlank {
		return nil, nil, fmt.Errorf("queue: missing blank line terminating header")
	}

	body := data[consumed:]
	return info, body, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
