package suite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeDescendantValuesWin(t *testing.T) {
	ancestor := Metadata{
		Timeout:    time.Minute,
		TestOn:     "vm",
		SkipReason: "old reason",
	}
	descendant := Metadata{
		Timeout:    time.Second,
		TestOn:     "browser",
		SkipReason: "new reason",
	}
	merged := ancestor.Merge(descendant)
	assert.Equal(t, time.Second, merged.Timeout)
	assert.Equal(t, "browser", merged.TestOn)
	assert.Equal(t, "new reason", merged.SkipReason)
}

func TestMergeZeroDescendantInherits(t *testing.T) {
	ancestor := Metadata{Timeout: time.Minute, TestOn: "vm"}
	merged := ancestor.Merge(Metadata{})
	assert.Equal(t, time.Minute, merged.Timeout)
	assert.Equal(t, "vm", merged.TestOn)
}

func TestMergeSkipIsCumulative(t *testing.T) {
	merged := Metadata{Skip: true}.Merge(Metadata{})
	assert.True(t, merged.Skip, "skip inherited from ancestor")

	merged = Metadata{}.Merge(Metadata{Skip: true})
	assert.True(t, merged.Skip)
}

func TestMergeUnionsTags(t *testing.T) {
	merged := Metadata{Tags: []string{"slow", "net"}}.Merge(Metadata{Tags: []string{"net", "flaky"}})
	assert.Equal(t, []string{"slow", "net", "flaky"}, merged.Tags)
}

func TestEffectiveMetadataMergesOutermostFirst(t *testing.T) {
	outer := &Group{Name: "outer", Metadata: Metadata{Timeout: time.Minute, Tags: []string{"a"}}}
	inner := &Group{Name: "inner", Metadata: Metadata{Timeout: time.Second, Tags: []string{"b"}}}
	test := NewTest("t", Metadata{Tags: []string{"c"}}, func(t *T) {})

	effective := EffectiveMetadata([]*Group{outer, inner}, test)
	assert.Equal(t, time.Second, effective.Timeout, "innermost timeout wins")
	assert.Equal(t, []string{"a", "b", "c"}, effective.Tags)
}

func TestMetadataSerializationRoundTrip(t *testing.T) {
	original := Metadata{
		Skip:       true,
		SkipReason: "not on this platform",
		Timeout:    30 * time.Second,
		Tags:       []string{"slow", "net"},
		TestOn:     "vm",
	}
	decoded := DeserializeMetadata(original.Serialize())
	assert.Equal(t, original, decoded)
}

func TestMetadataDeserializeToleratesAbsentKeys(t *testing.T) {
	decoded := DeserializeMetadata(Metadata{}.Serialize())
	assert.Equal(t, Metadata{}, decoded)
}
