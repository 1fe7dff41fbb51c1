package suite

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Metadata is the inheritable configuration attached to groups and tests.
// A test's effective metadata is the merge of its whole group chain,
// outermost first, with its own metadata applied last.
type Metadata struct {
	// Skip marks the test (or everything in the group) as not to be run.
	Skip bool

	// SkipReason optionally explains Skip.
	SkipReason string

	// Timeout bounds a single test run. Zero means no limit.
	Timeout time.Duration

	// Tags are free-form labels, accumulated down the group chain.
	Tags []string

	// TestOn restricts which platforms the test applies to. Empty means all.
	TestOn string
}

// Merge combines ancestor metadata (the receiver) with descendant metadata,
// descendant values winning on conflicting keys. Skip is cumulative: once a
// group is skipped, everything beneath it stays skipped. Tags are unioned.
func (m Metadata) Merge(child Metadata) Metadata {
	merged := m
	merged.Skip = m.Skip || child.Skip
	if child.SkipReason != "" {
		merged.SkipReason = child.SkipReason
	}
	if child.Timeout != 0 {
		merged.Timeout = child.Timeout
	}
	if child.TestOn != "" {
		merged.TestOn = child.TestOn
	}
	merged.Tags = unionTags(m.Tags, child.Tags)
	return merged
}

func unionTags(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	var ret []string
	for _, list := range [][]string{a, b} {
		for _, tag := range list {
			if !seen[tag] {
				seen[tag] = true
				ret = append(ret, tag)
			}
		}
	}
	return ret
}

// Serialize produces the JSON-safe form of the metadata.
func (m Metadata) Serialize() ldvalue.Value {
	tags := ldvalue.ArrayBuild()
	for _, tag := range m.Tags {
		tags.Add(ldvalue.String(tag))
	}
	b := ldvalue.ObjectBuild().
		Set("skip", ldvalue.Bool(m.Skip)).
		Set("timeoutMs", ldvalue.Int(int(m.Timeout/time.Millisecond))).
		Set("tags", tags.Build())
	if m.SkipReason != "" {
		b.Set("skipReason", ldvalue.String(m.SkipReason))
	}
	if m.TestOn != "" {
		b.Set("testOn", ldvalue.String(m.TestOn))
	}
	return b.Build()
}

// DeserializeMetadata reverses Serialize. Unknown keys are ignored and absent
// keys produce zero values, so older and newer ends can interoperate.
func DeserializeMetadata(v ldvalue.Value) Metadata {
	m := Metadata{
		Skip:       v.GetByKey("skip").BoolValue(),
		SkipReason: v.GetByKey("skipReason").StringValue(),
		Timeout:    time.Duration(v.GetByKey("timeoutMs").IntValue()) * time.Millisecond,
		TestOn:     v.GetByKey("testOn").StringValue(),
	}
	tags := v.GetByKey("tags")
	for i := 0; i < tags.Count(); i++ {
		m.Tags = append(m.Tags, tags.GetByIndex(i).StringValue())
	}
	return m
}
