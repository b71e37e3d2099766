package imapclient

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/infodancer/mailcore/internal/imapclient/mutf7"
)

// ListEntry is one decoded, separator-normalized mailbox name and its
// selectability flags, as produced by the LIST synchronisation
// algorithm of §4.3.7.
type ListEntry struct {
	Path        string // '/'-delimited, modified UTF-7 decoded
	NoInferiors bool   // \Noinferiors: cannot have children
	NoSelect    bool   // \Noselect: cannot be SELECTed; INBOX is exempt
	Synthesized bool   // intermediate parent not itself returned by LIST
}

// List runs `LIST reference pattern` and returns every entry the
// server reports, decoded and separator-normalized, with synthesized
// intermediate parents filled in so the result is a connected tree.
func (cl *Client) List(ctx context.Context, reference, pattern string) ([]ListEntry, error) {
	var entries []ListEntry
	err := cl.exclusive(func() error {
		tag := cl.tags.Next()
		cmd := fmt.Sprintf("%s LIST %s %s", tag, quoteArg(reference), quoteArg(pattern))
		if err := cl.writeCommand(ctx, cmd); err != nil {
			return err
		}

		seen := make(map[string]bool)
		for {
			line, err := ReadLine(ctx, cl.Base)
			if err != nil {
				return err
			}
			if line.Tag == tag {
				if responseStatus(line) != StatusOK {
					return fmt.Errorf("imapclient: LIST failed: %s", line.Raw)
				}
				break
			}
			if !line.IsUntagged() || line.FirstAtom() != "LIST" || len(line.Tokens) < 4 {
				continue
			}
			entry := parseListLine(line, cl.separator)
			if isLeafDotfile(entry.Path) {
				continue
			}
			entries = append(entries, entry)
			seen[entry.Path] = true
		}

		synthesized := synthesizeParents(entries, seen)
		entries = append(entries, synthesized...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func parseListLine(line *Line, sep byte) ListEntry {
	e := ListEntry{}
	if line.Tokens[1].Kind == TokenList {
		for _, flag := range line.Tokens[1].Items {
			switch strings.ToLower(flag.Str) {
			case `\noinferiors`:
				e.NoInferiors = true
			case `\noselect`:
				e.NoSelect = true
			}
		}
	}
	raw := line.Tokens[3].Str
	decoded := mutf7.Decode(raw)
	path := FromWire(decoded, sep)
	e.Path = path
	if strings.EqualFold(path, "INBOX") {
		e.NoSelect = false
	}
	return e
}

// isLeafDotfile reports whether a path's final component starts with a
// dot, per §4.3.7 step 3 (hidden entries like ".subscriptions").
func isLeafDotfile(path string) bool {
	leaf := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		leaf = path[i+1:]
	}
	return strings.HasPrefix(leaf, ".")
}

// synthesizeParents fills in intermediate path components that appear
// as ancestors of a returned name but were not themselves returned by
// LIST, marking them \Noselect per §4.3.7 step 5.
func synthesizeParents(entries []ListEntry, seen map[string]bool) []ListEntry {
	var extra []ListEntry
	added := make(map[string]bool)
	for _, e := range entries {
		parts := strings.Split(e.Path, "/")
		for i := 1; i < len(parts); i++ {
			parent := strings.Join(parts[:i], "/")
			if seen[parent] || added[parent] {
				continue
			}
			added[parent] = true
			extra = append(extra, ListEntry{Path: parent, NoSelect: true, Synthesized: true})
		}
	}
	return extra
}

// LocalNode is the narrow interface a caller's in-memory folder tree
// must satisfy for Reconcile to merge server LIST results into it.
// Nodes the caller marks virtual (a GUI-only concept, e.g. a "Search
// Results" pseudo-folder) are left untouched by reconciliation.
type LocalNode interface {
	Path() string
	Children() []LocalNode
	IsVirtual() bool
	SetFlags(noInferiors, noSelect bool)
	AddChild(path string, noInferiors, noSelect bool) LocalNode
	RemoveChild(path string)
}

// Reconcile merges server-reported entries into the local tree rooted
// at root, per §4.3.7's three-way reconciliation: match existing
// children by path and adopt server flags, remove local children the
// server no longer reports, append server-new children, and prune the
// children of any node the server now reports as \Noinferiors.
func Reconcile(root LocalNode, entries []ListEntry) {
	byPath := make(map[string]ListEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	existing := make(map[string]LocalNode)
	for _, c := range root.Children() {
		if !c.IsVirtual() {
			existing[c.Path()] = c
		}
	}

	for path, node := range existing {
		e, ok := byPath[path]
		if !ok {
			root.RemoveChild(path)
			continue
		}
		node.SetFlags(e.NoInferiors, e.NoSelect)
		if e.NoInferiors {
			for _, child := range node.Children() {
				if !child.IsVirtual() {
					node.RemoveChild(child.Path())
				}
			}
		}
	}

	for path, e := range byPath {
		if _, ok := existing[path]; !ok {
			root.AddChild(path, e.NoInferiors, e.NoSelect)
		}
	}
}
