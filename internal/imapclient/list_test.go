package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListLineDecodesAndNormalizes(t *testing.T) {
	line, err := ReadLine(t.Context(), pipeBase(t, `* LIST (\HasNoChildren) "." INBOX.Entw&APw-rfe`+"\r\n"))
	require.NoError(t, err)
	e := parseListLine(line, '.')
	assert.Equal(t, "INBOX/Entwürfe", e.Path)
	assert.False(t, e.NoSelect)
}

func TestParseListLineInboxExemptFromNoselect(t *testing.T) {
	line, err := ReadLine(t.Context(), pipeBase(t, `* LIST (\Noselect) "." INBOX`+"\r\n"))
	require.NoError(t, err)
	e := parseListLine(line, '.')
	assert.False(t, e.NoSelect, "INBOX is always selectable regardless of server flags")
}

func TestIsLeafDotfile(t *testing.T) {
	assert.True(t, isLeafDotfile("INBOX/.subscriptions"))
	assert.False(t, isLeafDotfile("INBOX/Sent"))
}

func TestSynthesizeParents(t *testing.T) {
	entries := []ListEntry{{Path: "INBOX/Sent/2024"}}
	seen := map[string]bool{"INBOX/Sent/2024": true}
	extra := synthesizeParents(entries, seen)
	require.Len(t, extra, 2)
	paths := map[string]bool{}
	for _, e := range extra {
		paths[e.Path] = true
		assert.True(t, e.NoSelect)
		assert.True(t, e.Synthesized)
	}
	assert.True(t, paths["INBOX"])
	assert.True(t, paths["INBOX/Sent"])
}

// fakeNode is a minimal in-memory LocalNode for exercising Reconcile.
type fakeNode struct {
	path        string
	virtual     bool
	noInferiors bool
	noSelect    bool
	children    map[string]*fakeNode
}

func newFakeNode(path string) *fakeNode {
	return &fakeNode{path: path, children: make(map[string]*fakeNode)}
}

func (n *fakeNode) Path() string    { return n.path }
func (n *fakeNode) IsVirtual() bool { return n.virtual }
func (n *fakeNode) Children() []LocalNode {
	out := make([]LocalNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}
func (n *fakeNode) SetFlags(noInferiors, noSelect bool) {
	n.noInferiors, n.noSelect = noInferiors, noSelect
}
func (n *fakeNode) AddChild(path string, noInferiors, noSelect bool) LocalNode {
	c := newFakeNode(path)
	c.noInferiors, c.noSelect = noInferiors, noSelect
	n.children[path] = c
	return c
}
func (n *fakeNode) RemoveChild(path string) { delete(n.children, path) }

func TestReconcileMatchesRemovesAppends(t *testing.T) {
	root := newFakeNode("")
	root.AddChild("INBOX/Old", false, false)
	root.AddChild("INBOX/Sent", false, false)
	root.children["virtual-search"] = &fakeNode{path: "virtual-search", virtual: true, children: map[string]*fakeNode{}}

	entries := []ListEntry{
		{Path: "INBOX/Sent", NoSelect: false},
		{Path: "INBOX/New", NoSelect: false},
	}
	Reconcile(root, entries)

	assert.NotContains(t, root.children, "INBOX/Old")
	assert.Contains(t, root.children, "INBOX/Sent")
	assert.Contains(t, root.children, "INBOX/New")
	assert.Contains(t, root.children, "virtual-search", "virtual nodes are untouched")
}

func TestReconcilePrunesChildrenOnNoinferiors(t *testing.T) {
	root := newFakeNode("")
	parent := root.AddChild("INBOX/Archive", false, false).(*fakeNode)
	parent.AddChild("INBOX/Archive/2023", false, false)

	entries := []ListEntry{{Path: "INBOX/Archive", NoInferiors: true}}
	Reconcile(root, entries)

	assert.Empty(t, parent.children)
	assert.True(t, parent.noInferiors)
}
