// Package suite holds the declared test tree for one entry point: groups,
// tests, their inheritable metadata, and the live execution of a single test
// bound to its ancestor group chain.
package suite

// Suite is the root of a loaded test tree, created once per worker lifetime
// after a successful load and immutable thereafter.
type Suite struct {
	Platform Platform
	OS       OperatingSystem
	Root     *Group
}

func NewSuite(platform Platform, os OperatingSystem, root *Group) *Suite {
	return &Suite{Platform: platform, OS: os, Root: root}
}

// GroupEntry is one element of a group's ordered contents: either a nested
// *Group or a *Test.
type GroupEntry interface {
	EntryName() string
}

// Group is a named subtree with inheritable metadata, optional
// setUpAll/tearDownAll pseudo-tests, and ordered entries.
type Group struct {
	Name        string
	Metadata    Metadata
	Trace       string
	SetUpAll    *Test
	TearDownAll *Test
	Entries     []GroupEntry

	setUps    []TestFunc
	tearDowns []TestFunc
}

func (g *Group) EntryName() string { return g.Name }

// Test is a single runnable declaration. It is not a running instance; a
// LiveTest is created from it each time the host requests a run.
type Test struct {
	Name     string
	Metadata Metadata
	Trace    string

	fn TestFunc
}

func (t *Test) EntryName() string { return t.Name }

// NewTest constructs a standalone test declaration. Most tests are declared
// through a Declarer instead; this is mainly useful in tests of the runner
// itself.
func NewTest(name string, metadata Metadata, fn TestFunc) *Test {
	return &Test{Name: name, Metadata: metadata, fn: fn}
}

// EffectiveMetadata computes a test's configuration as the ordered merge of
// its ancestor chain's metadata, outermost first, with the test's own
// metadata applied last.
func EffectiveMetadata(ancestors []*Group, test *Test) Metadata {
	var merged Metadata
	for i, g := range ancestors {
		if i == 0 {
			merged = g.Metadata
		} else {
			merged = merged.Merge(g.Metadata)
		}
	}
	if len(ancestors) == 0 {
		return test.Metadata
	}
	return merged.Merge(test.Metadata)
}
