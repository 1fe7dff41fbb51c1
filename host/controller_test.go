package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testfabric/suite-worker/protocol"
)

func TestDiscoveryTestsWalksInDeclarationOrder(t *testing.T) {
	d := &Discovery{
		Root: &protocol.TreeNode{
			Type: protocol.NodeTypeGroup,
			Entries: []*protocol.TreeNode{
				{Type: protocol.NodeTypeTest, Name: "first", Channel: 1},
				{
					Type:        protocol.NodeTypeGroup,
					Name:        "group",
					SetUpAll:    &protocol.TreeNode{Type: protocol.NodeTypeTest, Name: "(setUpAll)", Channel: 3},
					TearDownAll: &protocol.TreeNode{Type: protocol.NodeTypeTest, Name: "(tearDownAll)", Channel: 5},
					Entries: []*protocol.TreeNode{
						{Type: protocol.NodeTypeTest, Name: "second", Channel: 7},
					},
				},
			},
		},
	}

	var paths []string
	for _, dt := range d.Tests() {
		paths = append(paths, dt.Path)
	}

	// setUpAll runs before a group's tests and tearDownAll after, so the walk
	// yields them in that position.
	assert.Equal(t, []string{
		"first",
		"group/(setUpAll)",
		"group/second",
		"group/(tearDownAll)",
	}, paths)
}

func TestObservationFinalResult(t *testing.T) {
	var o Observation
	assert.Equal(t, "", o.FinalResult())

	o.States = append(o.States,
		protocol.NewStateChange("running", "success"),
		protocol.NewStateChange("complete", "failure"),
	)
	assert.Equal(t, "failure", o.FinalResult())
}

func TestLoadErrorMessage(t *testing.T) {
	err := &LoadError{Message: "No top-level entry point defined."}
	require.Contains(t, err.Error(), "No top-level entry point defined.")
}
