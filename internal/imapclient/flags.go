package imapclient

import (
	"context"
	"fmt"
	"strings"
)

// IMAPFlags is a bitset of the standard IMAP system flags plus a 3-bit
// color label encoded via the non-standard $label1..$label7 keywords
// some clients (and servers) use as a de facto color extension.
type IMAPFlags uint16

const (
	FlagSeen IMAPFlags = 1 << iota
	FlagAnswered
	FlagFlagged
	FlagDeleted
	FlagDraft
	FlagRecent

	labelShift = 6
	labelMask  = IMAPFlags(0x7) << labelShift
)

// Label returns the 0-7 color label ($label1..$label7 -> 1..7, none -> 0).
func (f IMAPFlags) Label() int {
	return int((f & labelMask) >> labelShift)
}

// WithLabel returns a copy of f with its color label replaced.
func (f IMAPFlags) WithLabel(label int) IMAPFlags {
	if label < 0 || label > 7 {
		label = 0
	}
	return (f &^ labelMask) | (IMAPFlags(label) << labelShift)
}

func parseFlagList(items []Token) IMAPFlags {
	var f IMAPFlags
	for _, tok := range items {
		name := strings.ToLower(strings.TrimPrefix(tok.Str, `\`))
		switch name {
		case "seen":
			f |= FlagSeen
		case "answered":
			f |= FlagAnswered
		case "flagged":
			f |= FlagFlagged
		case "deleted":
			f |= FlagDeleted
		case "draft":
			f |= FlagDraft
		case "recent":
			f |= FlagRecent
		default:
			if label, ok := parseLabelKeyword(tok.Str); ok {
				f = f.WithLabel(label)
			}
		}
	}
	return f
}

func parseLabelKeyword(s string) (int, bool) {
	const prefix = "$label"
	if !strings.HasPrefix(strings.ToLower(s), prefix) || len(s) != len(prefix)+1 {
		return 0, false
	}
	d := s[len(prefix)]
	if d < '1' || d > '7' {
		return 0, false
	}
	return int(d - '0'), true
}

func (f IMAPFlags) wireKeywords() []string {
	var out []string
	if f&FlagSeen != 0 {
		out = append(out, `\Seen`)
	}
	if f&FlagAnswered != 0 {
		out = append(out, `\Answered`)
	}
	if f&FlagFlagged != 0 {
		out = append(out, `\Flagged`)
	}
	if f&FlagDeleted != 0 {
		out = append(out, `\Deleted`)
	}
	if f&FlagDraft != 0 {
		out = append(out, `\Draft`)
	}
	if label := f.Label(); label > 0 {
		out = append(out, fmt.Sprintf("$label%d", label))
	}
	return out
}

// FetchFlags is the default flag-listing strategy (§4.3.8): a single
// `UID FETCH 1:* (UID FLAGS)` whose untagged FETCH responses are
// parsed into a uid -> IMAPFlags map.
func (cl *Client) FetchFlags(ctx context.Context) (map[uint32]IMAPFlags, error) {
	var out map[uint32]IMAPFlags
	err := cl.exclusive(func() error {
		tag := cl.tags.Next()
		if err := cl.writeCommand(ctx, tag+" UID FETCH 1:* (UID FLAGS)"); err != nil {
			return err
		}
		out = make(map[uint32]IMAPFlags)
		for {
			line, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return err
			}
			if line.Tag == tag {
				if responseStatus(line) != StatusOK {
					return fmt.Errorf("imapclient: UID FETCH FLAGS failed: %s", line.Raw)
				}
				return nil
			}
			uid, flags, ok := parseFetchFlagsLine(line)
			if ok {
				out[uid] = flags
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseFetchFlagsLine(line *Line) (uint32, IMAPFlags, bool) {
	if !line.IsUntagged() || len(line.Tokens) < 3 || line.Tokens[1].Kind != TokenAtom || !strings.EqualFold(line.Tokens[1].Str, "FETCH") {
		return 0, 0, false
	}
	list := line.Tokens[2]
	if list.Kind != TokenList {
		return 0, 0, false
	}
	var uid uint32
	var flags IMAPFlags
	for i := 0; i+1 < len(list.Items); i += 2 {
		key := strings.ToUpper(list.Items[i].Str)
		switch key {
		case "UID":
			uid = uint32(list.Items[i+1].Num)
		case "FLAGS":
			flags = parseFlagList(list.Items[i+1].Items)
		}
	}
	return uid, flags, uid != 0
}

// SearchFlags is the alternate strategy (§4.3.8): UID SEARCH ALL plus
// three keyword searches, combined into the same uid -> IMAPFlags map.
// Preserved per spec §9 as a dead-in-practice alternate; no production
// server observed in the wild requires it over FetchFlags.
func (cl *Client) SearchFlags(ctx context.Context) (map[uint32]IMAPFlags, error) {
	var out map[uint32]IMAPFlags
	err := cl.exclusive(func() error {
		all, err := cl.uidSearch(ctx, "ALL")
		if err != nil {
			return err
		}
		out = make(map[uint32]IMAPFlags, len(all))
		for _, uid := range all {
			out[uid] = 0
		}
		for keyword, bit := range map[string]IMAPFlags{
			"UNSEEN":   0, // absence of UNSEEN implies Seen; handled below
			"FLAGGED":  FlagFlagged,
			"ANSWERED": FlagAnswered,
		} {
			uids, err := cl.uidSearch(ctx, keyword)
			if err != nil {
				return err
			}
			set := make(map[uint32]bool, len(uids))
			for _, u := range uids {
				set[u] = true
			}
			if keyword == "UNSEEN" {
				for uid := range out {
					if !set[uid] {
						out[uid] |= FlagSeen
					}
				}
				continue
			}
			for uid := range set {
				out[uid] |= bit
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// uidSearch is only ever called from within SearchFlags' exclusive
// block, so it does not acquire the worker gate itself.
func (cl *Client) uidSearch(ctx context.Context, keyword string) ([]uint32, error) {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" UID SEARCH "+keyword); err != nil {
		return nil, err
	}
	var uids []uint32
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return nil, err
		}
		if line.Tag == tag {
			if responseStatus(line) != StatusOK {
				return nil, fmt.Errorf("imapclient: UID SEARCH %s failed: %s", keyword, line.Raw)
			}
			return uids, nil
		}
		if line.IsUntagged() && strings.EqualFold(line.FirstAtom(), "SEARCH") {
			for _, tok := range line.Tokens[1:] {
				if tok.Kind == TokenNumber {
					uids = append(uids, uint32(tok.Num))
				}
			}
		}
	}
}
