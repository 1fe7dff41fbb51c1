package worker

import (
	"github.com/testfabric/suite-worker/protocol"
	"github.com/testfabric/suite-worker/suite"
)

// serializeGroup walks a group subtree, producing its JSON-safe description.
// ancestors is the chain of enclosing groups, outermost first, not yet
// including g.
func (l *Listener) serializeGroup(g *suite.Group, ancestors []*suite.Group) *protocol.TreeNode {
	chain := make([]*suite.Group, len(ancestors), len(ancestors)+1)
	copy(chain, ancestors)
	chain = append(chain, g)

	node := &protocol.TreeNode{
		Type:     protocol.NodeTypeGroup,
		Name:     g.Name,
		Metadata: g.Metadata.Serialize(),
		Trace:    g.Trace,
		Entries:  []*protocol.TreeNode{},
	}
	if g.SetUpAll != nil {
		node.SetUpAll = l.serializeTest(g.SetUpAll, chain)
	}
	if g.TearDownAll != nil {
		node.TearDownAll = l.serializeTest(g.TearDownAll, chain)
	}
	for _, entry := range g.Entries {
		switch e := entry.(type) {
		case *suite.Group:
			node.Entries = append(node.Entries, l.serializeGroup(e, chain))
		case *suite.Test:
			node.Entries = append(node.Entries, l.serializeTest(e, chain))
		}
	}
	return node
}

// serializeTest mints the test's discovery channel as a side effect: the
// channel exists before the host has asked to run anything, and stays valid
// for the lifetime of the suite so a run command can arrive at any point.
// The ancestor chain is captured here so that the test can later be loaded
// with its full group context without the host knowing about ancestry.
func (l *Listener) serializeTest(t *suite.Test, ancestors []*suite.Group) *protocol.TreeNode {
	ch, id := l.mux.CreateLocal()
	go l.serveTest(ch, t, ancestors)
	return &protocol.TreeNode{
		Type:     protocol.NodeTypeTest,
		Name:     t.Name,
		Metadata: t.Metadata.Serialize(),
		Trace:    t.Trace,
		Channel:  uint64(id),
	}
}
