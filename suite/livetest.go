package suite

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Status is a LiveTest's lifecycle phase. StatusComplete is terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
)

// Result is a LiveTest's outcome. It may be observed provisionally while the
// test is still running; it is final once the status reaches complete.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

func resultRank(r Result) int {
	switch r {
	case ResultFailure:
		return 1
	case ResultError:
		return 2
	default:
		return 0
	}
}

// StateChange is one status/result transition, delivered on States.
type StateChange struct {
	Status Status
	Result Result
}

// TestError is one failure captured during a run, delivered on Errors.
type TestError struct {
	Value interface{}
	Stack string
}

// MessageType tags diagnostic messages.
type MessageType string

const (
	MessagePrint MessageType = "print"
	MessageSkip  MessageType = "skip"
)

// Message is one diagnostic line emitted during a run, delivered on Messages.
type Message struct {
	Type MessageType
	Text string
}

const (
	stateBufferSize   = 10
	errorBufferSize   = 100
	messageBufferSize = 1000
)

type controlSignal string

const (
	signalFailNow controlSignal = "failNow"
	signalSkip    controlSignal = "skip"
)

// LiveTest is a running instance of a Test bound to its full ancestor group
// chain, which is what makes per-group setUp/tearDown inheritance work. It is
// created when the host requests a run and is logically destroyed once Run
// returns and the notification channels close.
type LiveTest struct {
	test      *Test
	ancestors []*Group
	metadata  Metadata

	status   Status
	result   Result
	finished bool
	lock     sync.Mutex

	states   chan StateChange
	errors   chan TestError
	messages chan Message

	closed    chan struct{}
	closeOnce sync.Once
}

// NewLiveTest binds test to its ancestor chain (outermost group first) and
// computes its effective metadata.
func NewLiveTest(test *Test, ancestors []*Group) *LiveTest {
	return &LiveTest{
		test:      test,
		ancestors: ancestors,
		metadata:  EffectiveMetadata(ancestors, test),
		status:    StatusPending,
		result:    ResultSuccess,
		states:    make(chan StateChange, stateBufferSize),
		errors:    make(chan TestError, errorBufferSize),
		messages:  make(chan Message, messageBufferSize),
		closed:    make(chan struct{}),
	}
}

// States delivers every status transition in order. Closed when the run ends.
func (lt *LiveTest) States() <-chan StateChange { return lt.states }

// Errors delivers failures captured during the run. Closed when the run ends.
func (lt *LiveTest) Errors() <-chan TestError { return lt.errors }

// Messages delivers diagnostic output emitted during the run. Closed when the
// run ends.
func (lt *LiveTest) Messages() <-chan Message { return lt.messages }

func (lt *LiveTest) Status() Status {
	lt.lock.Lock()
	defer lt.lock.Unlock()
	return lt.status
}

func (lt *LiveTest) Result() Result {
	lt.lock.Lock()
	defer lt.lock.Unlock()
	return lt.result
}

func (lt *LiveTest) Name() string { return lt.test.Name }

// EffectiveMetadata returns the merged configuration the test runs under.
func (lt *LiveTest) EffectiveMetadata() Metadata { return lt.metadata }

// Close requests early termination. Run still finishes with a terminal state
// change so the host's bookkeeping is never left pending. Safe to call more
// than once.
func (lt *LiveTest) Close() {
	lt.closeOnce.Do(func() { close(lt.closed) })
}

// Run executes the test: ancestor setUps outermost first, the body, then
// tearDowns innermost first. It returns once the test is complete, after
// which all three notification channels are closed. A test whose effective
// metadata says skip is not executed at all; it completes successfully after
// emitting a skip message.
func (lt *LiveTest) Run(ctx context.Context) {
	defer func() {
		// An abandoned body goroutine (after close or timeout) may still try
		// to report; marking the test finished first keeps those late
		// notifications from hitting closed channels.
		lt.lock.Lock()
		lt.finished = true
		close(lt.states)
		close(lt.errors)
		close(lt.messages)
		lt.lock.Unlock()
	}()

	if lt.metadata.Skip {
		lt.pushMessage(MessageSkip, lt.metadata.SkipReason)
		lt.setState(StatusComplete, ResultSuccess)
		return
	}

	lt.setState(StatusRunning, ResultSuccess)

	if lt.metadata.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lt.metadata.Timeout)
		defer cancel()
	}

	bodyDone := make(chan struct{})
	t := &T{lt: lt}
	go func() {
		defer close(bodyDone)
		lt.runSequence(t)
	}()

	select {
	case <-bodyDone:
	case <-lt.closed:
		// Early termination: the body goroutine is abandoned. The worker
		// lives for one suite, so it cannot outlast anything that matters.
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			lt.pushError(fmt.Errorf("test timed out after %s", lt.metadata.Timeout), "")
			lt.setResultAtLeast(ResultError)
		}
	}

	lt.setState(StatusComplete, lt.Result())
}

func (lt *LiveTest) runSequence(t *T) {
	setupOK := true
	for _, g := range lt.ancestors {
		for _, fn := range g.setUps {
			if !lt.invoke(fn, t) {
				setupOK = false
				break
			}
		}
		if !setupOK {
			break
		}
	}

	if setupOK {
		lt.invoke(lt.test.fn, t)
	}

	for i := len(lt.ancestors) - 1; i >= 0; i-- {
		tearDowns := lt.ancestors[i].tearDowns
		for j := len(tearDowns) - 1; j >= 0; j-- {
			lt.invoke(tearDowns[j], t)
		}
	}
}

// invoke runs one callback, converting panics into recorded failures. It
// reports whether the sequence should keep going.
func (lt *LiveTest) invoke(fn TestFunc, t *T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r {
			case signalFailNow:
				lt.setResultAtLeast(ResultFailure)
			case signalSkip:
				// Message already emitted by T.Skip; result stays success.
			default:
				lt.pushError(r, string(debug.Stack()))
				lt.setResultAtLeast(ResultError)
			}
			ok = false
		}
	}()
	fn(t)
	return true
}

func (lt *LiveTest) setState(status Status, result Result) {
	lt.lock.Lock()
	lt.status = status
	lt.result = result
	lt.lock.Unlock()
	lt.states <- StateChange{Status: status, Result: result}
}

func (lt *LiveTest) setResultAtLeast(result Result) {
	lt.lock.Lock()
	if resultRank(result) > resultRank(lt.result) {
		lt.result = result
	}
	lt.lock.Unlock()
}

func (lt *LiveTest) pushError(value interface{}, stack string) {
	lt.lock.Lock()
	defer lt.lock.Unlock()
	if lt.finished {
		return
	}
	select {
	case lt.errors <- TestError{Value: value, Stack: stack}:
	default:
		// An overflowing error stream means something is already badly
		// wrong; dropping beats blocking the run forever.
	}
}

func (lt *LiveTest) pushMessage(messageType MessageType, text string) {
	lt.lock.Lock()
	defer lt.lock.Unlock()
	if lt.finished {
		return
	}
	select {
	case lt.messages <- Message{Type: messageType, Text: text}:
	default:
	}
}

// T is the handle passed to test bodies for reporting output and failures.
type T struct {
	lt *LiveTest
}

// Printf emits diagnostic output, forwarded to the host as a message.
func (t *T) Printf(format string, args ...interface{}) {
	t.lt.pushMessage(MessagePrint, fmt.Sprintf(format, args...))
}

// Print emits diagnostic output, forwarded to the host as a message.
func (t *T) Print(args ...interface{}) {
	t.lt.pushMessage(MessagePrint, fmt.Sprint(args...))
}

// Errorf records a failure and lets the test keep running.
func (t *T) Errorf(format string, args ...interface{}) {
	t.lt.pushError(fmt.Errorf(format, args...), string(debug.Stack()))
	t.lt.setResultAtLeast(ResultFailure)
}

// FailNow stops the current callback immediately. The result becomes failure.
func (t *T) FailNow() {
	panic(signalFailNow)
}

// Fatalf records a failure and stops the current callback immediately.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.lt.pushError(fmt.Errorf(format, args...), string(debug.Stack()))
	t.lt.setResultAtLeast(ResultFailure)
	t.FailNow()
}

// Skip emits a skip message and stops the current callback without marking
// the test as failed.
func (t *T) Skip(reason string) {
	t.lt.pushMessage(MessageSkip, reason)
	panic(signalSkip)
}
