package protocol

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	NodeTypeGroup = "group"
	NodeTypeTest  = "test"
)

// TreeNode is one node of the serialized suite tree. A group node has
// Entries (plus optional SetUpAll/TearDownAll); a test node has the id of
// the virtual channel on which a run command for it can later be sent.
type TreeNode struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Metadata ldvalue.Value `json:"metadata"`
	Trace    string        `json:"trace,omitempty"`

	// Group nodes only.
	SetUpAll    *TreeNode   `json:"setUpAll,omitempty"`
	TearDownAll *TreeNode   `json:"tearDownAll,omitempty"`
	Entries     []*TreeNode `json:"entries,omitempty"`

	// Test nodes only.
	Channel uint64 `json:"channel,omitempty"`
}

// MarshalJSON emits the exact wire shape for each node type: group nodes
// always carry setUpAll/tearDownAll (null when absent) and entries, test
// nodes carry their channel id and neither of those keys.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	fields := map[string]interface{}{
		"type":     n.Type,
		"name":     n.Name,
		"metadata": n.Metadata,
	}
	if n.Trace != "" {
		fields["trace"] = n.Trace
	}
	if n.Type == NodeTypeGroup {
		fields["setUpAll"] = n.SetUpAll
		fields["tearDownAll"] = n.TearDownAll
		entries := n.Entries
		if entries == nil {
			entries = []*TreeNode{}
		}
		fields["entries"] = entries
	} else {
		fields["channel"] = n.Channel
	}
	return json.Marshal(fields)
}

// UnmarshalJSON uses the plain struct shape; absent keys simply leave their
// fields at zero values.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	type plainNode TreeNode
	var p plainNode
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = TreeNode(p)
	return nil
}

// CountTests returns the number of test nodes in the subtree, including
// setUpAll/tearDownAll pseudo-tests.
func (n *TreeNode) CountTests() int {
	if n.Type == NodeTypeTest {
		return 1
	}
	count := 0
	if n.SetUpAll != nil {
		count++
	}
	if n.TearDownAll != nil {
		count++
	}
	for _, entry := range n.Entries {
		count += entry.CountTests()
	}
	return count
}
