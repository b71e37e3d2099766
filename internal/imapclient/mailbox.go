package imapclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/infodancer/mailcore/internal/imapclient/mutf7"
)

// MailboxStatus holds the counters SELECT/EXAMINE/STATUS report.
type MailboxStatus struct {
	Name        string
	Exists      int64
	Recent      int64
	Unseen      int64
	UIDNext     int64
	UIDValidity int64
	ReadOnly    bool
}

// Select opens mbox for read-write access. If mbox already matches the
// session's currently selected mailbox and the caller does not need
// fresh counters, the round trip is skipped entirely (§4.3.6 fast path).
func (cl *Client) Select(ctx context.Context, mbox string, needCounters bool) (MailboxStatus, error) {
	return cl.doSelect(ctx, mbox, "SELECT", needCounters)
}

// Examine opens mbox read-only (EXAMINE); never short-circuits, since
// a caller requesting EXAMINE typically wants guaranteed-fresh counters.
func (cl *Client) Examine(ctx context.Context, mbox string) (MailboxStatus, error) {
	return cl.doSelect(ctx, mbox, "EXAMINE", true)
}

func (cl *Client) doSelect(ctx context.Context, mbox, verb string, needCounters bool) (MailboxStatus, error) {
	if verb == "SELECT" && !needCounters && cl.selected != nil && cl.selected.Name == mbox {
		return *cl.selected, nil
	}

	var st MailboxStatus
	err := cl.exclusive(func() error {
		wire := ToWire(mutf7.Encode(mbox), cl.separator)
		tag := cl.tags.Next()
		if err := cl.writeCommand(ctx, tag+" "+verb+" "+quoteArg(wire)); err != nil {
			return err
		}

		st = MailboxStatus{Name: mbox, ReadOnly: verb == "EXAMINE"}
		for {
			line, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return err
			}
			if line.Tag == tag {
				if responseStatus(line) != StatusOK {
					return fmt.Errorf("imapclient: %s %s failed: %s", verb, mbox, line.Raw)
				}
				if strings.Contains(strings.ToUpper(line.Raw), "READ-ONLY") {
					st.ReadOnly = true
				}
				cl.selected = &st
				return nil
			}
			parseMailboxUpdate(line, &st)
		}
	})
	if err != nil {
		return MailboxStatus{}, err
	}
	return st, nil
}

// Status issues STATUS mbox (MESSAGES RECENT UIDNEXT UIDVALIDITY UNSEEN)
// without selecting the mailbox.
func (cl *Client) Status(ctx context.Context, mbox string) (MailboxStatus, error) {
	var st MailboxStatus
	err := cl.exclusive(func() error {
		wire := ToWire(mutf7.Encode(mbox), cl.separator)
		tag := cl.tags.Next()
		cmd := tag + " STATUS " + quoteArg(wire) + " (MESSAGES RECENT UIDNEXT UIDVALIDITY UNSEEN)"
		if err := cl.writeCommand(ctx, cmd); err != nil {
			return err
		}

		st = MailboxStatus{Name: mbox}
		for {
			line, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return err
			}
			if line.Tag == tag {
				if responseStatus(line) != StatusOK {
					return fmt.Errorf("imapclient: STATUS %s failed: %s", mbox, line.Raw)
				}
				return nil
			}
			if line.IsUntagged() && line.FirstAtom() == "STATUS" {
				parseStatusAttrs(line, &st)
			}
		}
	})
	if err != nil {
		return MailboxStatus{}, err
	}
	return st, nil
}

// parseMailboxUpdate handles the untagged responses SELECT/EXAMINE emit:
// "* N EXISTS", "* N RECENT", "* OK [UNSEEN n]", "* OK [UIDVALIDITY n]".
func parseMailboxUpdate(line *Line, st *MailboxStatus) {
	if !line.IsUntagged() || len(line.Tokens) < 2 {
		return
	}
	switch {
	case line.Tokens[0].Kind == TokenNumber && len(line.Tokens) >= 2:
		switch strings.ToUpper(line.Tokens[1].Str) {
		case "EXISTS":
			st.Exists = line.Tokens[0].Num
		case "RECENT":
			st.Recent = line.Tokens[0].Num
		}
	case line.FirstAtom() == "OK":
		parseOKCode(line.Raw, st)
	}
}

// parseOKCode pulls a "[UNSEEN n]" or "[UIDVALIDITY n]" response code
// out of a raw "* OK [...] text" line; the bracketed code isn't tokenized
// by the general parser since it's IMAP's one context-sensitive form.
func parseOKCode(raw string, st *MailboxStatus) {
	open := strings.IndexByte(raw, '[')
	closeI := strings.IndexByte(raw, ']')
	if open < 0 || closeI < 0 || closeI < open {
		return
	}
	code := raw[open+1 : closeI]
	fields := strings.Fields(code)
	if len(fields) != 2 {
		return
	}
	n, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return
	}
	switch strings.ToUpper(fields[0]) {
	case "UNSEEN":
		st.Unseen = n
	case "UIDVALIDITY":
		st.UIDValidity = n
	case "UIDNEXT":
		st.UIDNext = n
	}
}

func parseStatusAttrs(line *Line, st *MailboxStatus) {
	for _, tok := range line.Tokens {
		if tok.Kind != TokenList {
			continue
		}
		for i := 0; i+1 < len(tok.Items); i += 2 {
			key := strings.ToUpper(tok.Items[i].Str)
			val := tok.Items[i+1].Num
			switch key {
			case "MESSAGES":
				st.Exists = val
			case "RECENT":
				st.Recent = val
			case "UIDNEXT":
				st.UIDNext = val
			case "UIDVALIDITY":
				st.UIDValidity = val
			case "UNSEEN":
				st.Unseen = val
			default:
				// Unknown STATUS token per §4.3.6: stop parsing this
				// list but keep whatever was already parsed.
				return
			}
		}
	}
}
