package suite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runOutcome struct {
	states   []StateChange
	errors   []TestError
	messages []Message
}

func executeLiveTest(lt *LiveTest) runOutcome {
	var outcome runOutcome
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for s := range lt.States() {
			outcome.states = append(outcome.states, s)
		}
	}()
	go func() {
		defer wg.Done()
		for e := range lt.Errors() {
			outcome.errors = append(outcome.errors, e)
		}
	}()
	go func() {
		defer wg.Done()
		for m := range lt.Messages() {
			outcome.messages = append(outcome.messages, m)
		}
	}()
	lt.Run(context.Background())
	wg.Wait()
	return outcome
}

func TestPassingTestStateSequence(t *testing.T) {
	lt := NewLiveTest(NewTest("ok", Metadata{}, func(t *T) {}), nil)
	assert.Equal(t, StatusPending, lt.Status())

	outcome := executeLiveTest(lt)

	require.Len(t, outcome.states, 2)
	assert.Equal(t, StateChange{Status: StatusRunning, Result: ResultSuccess}, outcome.states[0])
	assert.Equal(t, StateChange{Status: StatusComplete, Result: ResultSuccess}, outcome.states[1])
	assert.Empty(t, outcome.errors)
	assert.Equal(t, StatusComplete, lt.Status())
	assert.Equal(t, ResultSuccess, lt.Result())
}

func TestErrorfMarksFailureButKeepsRunning(t *testing.T) {
	reachedEnd := false
	lt := NewLiveTest(NewTest("fails", Metadata{}, func(t *T) {
		t.Errorf("value was %d, not %d", 1, 2)
		reachedEnd = true
	}), nil)

	outcome := executeLiveTest(lt)

	assert.True(t, reachedEnd)
	assert.Equal(t, ResultFailure, lt.Result())
	require.Len(t, outcome.errors, 1)
	err, ok := outcome.errors[0].Value.(error)
	require.True(t, ok)
	assert.Equal(t, "value was 1, not 2", err.Error())
}

func TestFatalfStopsTheBody(t *testing.T) {
	reachedEnd := false
	lt := NewLiveTest(NewTest("fatal", Metadata{}, func(t *T) {
		t.Fatalf("cannot continue")
		reachedEnd = true
	}), nil)

	outcome := executeLiveTest(lt)

	assert.False(t, reachedEnd)
	assert.Equal(t, ResultFailure, lt.Result())
	require.Len(t, outcome.errors, 1)
}

func TestPanicBecomesErrorResultWithStack(t *testing.T) {
	lt := NewLiveTest(NewTest("panics", Metadata{}, func(t *T) {
		panic("unexpected state")
	}), nil)

	outcome := executeLiveTest(lt)

	assert.Equal(t, ResultError, lt.Result())
	require.Len(t, outcome.errors, 1)
	assert.Equal(t, "unexpected state", outcome.errors[0].Value)
	assert.NotEmpty(t, outcome.errors[0].Stack)
}

func TestSkippedMetadataShortCircuits(t *testing.T) {
	ran := false
	lt := NewLiveTest(NewTest("skipped", Metadata{Skip: true, SkipReason: "not here"}, func(t *T) {
		ran = true
	}), nil)

	outcome := executeLiveTest(lt)

	assert.False(t, ran)
	assert.Equal(t, ResultSuccess, lt.Result())
	require.Len(t, outcome.messages, 1)
	assert.Equal(t, MessageSkip, outcome.messages[0].Type)
	assert.Equal(t, "not here", outcome.messages[0].Text)
	require.Len(t, outcome.states, 1, "a skipped test goes straight to complete")
	assert.Equal(t, StatusComplete, outcome.states[0].Status)
}

func TestRuntimeSkipLeavesResultSuccess(t *testing.T) {
	lt := NewLiveTest(NewTest("self-skip", Metadata{}, func(t *T) {
		t.Skip("missing fixture")
		panic("unreachable")
	}), nil)

	outcome := executeLiveTest(lt)

	assert.Equal(t, ResultSuccess, lt.Result())
	require.Len(t, outcome.messages, 1)
	assert.Equal(t, MessageSkip, outcome.messages[0].Type)
	assert.Empty(t, outcome.errors)
}

func TestTimeoutProducesErrorResult(t *testing.T) {
	lt := NewLiveTest(NewTest("hangs", Metadata{Timeout: 50 * time.Millisecond}, func(t *T) {
		time.Sleep(5 * time.Second)
	}), nil)

	start := time.Now()
	outcome := executeLiveTest(lt)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, ResultError, lt.Result())
	require.Len(t, outcome.errors, 1)
	err, ok := outcome.errors[0].Value.(error)
	require.True(t, ok)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCloseTerminatesEarlyWithTerminalState(t *testing.T) {
	started := make(chan struct{})
	lt := NewLiveTest(NewTest("long", Metadata{}, func(t *T) {
		close(started)
		time.Sleep(5 * time.Second)
	}), nil)

	go func() {
		<-started
		lt.Close()
	}()

	start := time.Now()
	outcome := executeLiveTest(lt)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.NotEmpty(t, outcome.states)
	last := outcome.states[len(outcome.states)-1]
	assert.Equal(t, StatusComplete, last.Status)
}

func TestSetUpsRunOutermostFirstAndTearDownsReverse(t *testing.T) {
	var order []string
	record := func(name string) TestFunc {
		return func(t *T) { order = append(order, name) }
	}

	outer := &Group{
		Name:      "outer",
		setUps:    []TestFunc{record("outer-setup")},
		tearDowns: []TestFunc{record("outer-teardown")},
	}
	inner := &Group{
		Name:      "inner",
		setUps:    []TestFunc{record("inner-setup")},
		tearDowns: []TestFunc{record("inner-teardown")},
	}
	lt := NewLiveTest(NewTest("t", Metadata{}, record("body")), []*Group{outer, inner})

	executeLiveTest(lt)

	assert.Equal(t, []string{
		"outer-setup", "inner-setup", "body", "inner-teardown", "outer-teardown",
	}, order)
}

func TestFailedSetUpSkipsBodyButRunsTearDowns(t *testing.T) {
	var order []string
	group := &Group{
		Name: "g",
		setUps: []TestFunc{func(t *T) {
			order = append(order, "setup")
			t.Fatalf("setup broke")
		}},
		tearDowns: []TestFunc{func(t *T) { order = append(order, "teardown") }},
	}
	lt := NewLiveTest(NewTest("t", Metadata{}, func(t *T) {
		order = append(order, "body")
	}), []*Group{group})

	executeLiveTest(lt)

	assert.Equal(t, []string{"setup", "teardown"}, order)
	assert.Equal(t, ResultFailure, lt.Result())
}

func TestEffectiveMetadataInheritsGroupSkip(t *testing.T) {
	group := &Group{Name: "g", Metadata: Metadata{Skip: true, SkipReason: "whole group off"}}
	lt := NewLiveTest(NewTest("t", Metadata{}, func(t *T) {}), []*Group{group})
	assert.True(t, lt.EffectiveMetadata().Skip)
	assert.Equal(t, "whole group off", lt.EffectiveMetadata().SkipReason)
}
