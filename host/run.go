package host

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/testfabric/suite-worker/mux"
	"github.com/testfabric/suite-worker/protocol"
)

// Observation is everything a run's streaming channel delivered, in order of
// arrival within each slice.
type Observation struct {
	States   []protocol.StateChange
	Errors   []protocol.ErrorRecord
	Messages []protocol.DiagnosticMessage
	Complete bool

	// AfterComplete counts messages that arrived after the terminal
	// complete, which the protocol forbids. Always zero for a conforming
	// worker.
	AfterComplete int
}

// FinalResult returns the result carried by the last state change, or "" if
// none was seen.
func (o *Observation) FinalResult() string {
	if len(o.States) == 0 {
		return ""
	}
	return o.States[len(o.States)-1].Result
}

// Run is one in-flight test execution started by StartTest.
type Run struct {
	// ID correlates this run in host-side logs.
	ID string

	stream *mux.Channel
	obs    Observation
	lock   sync.Mutex
	done   chan struct{}
}

// StartTest opens a fresh streaming channel, asks the worker to run the test
// behind node, and begins collecting the live stream.
func (c *Controller) StartTest(node *protocol.TreeNode) (*Run, error) {
	discovery, err := c.discoveryChannel(node)
	if err != nil {
		return nil, err
	}

	stream, streamID := c.mux.CreateLocal()
	r := &Run{
		ID:     uuid.New().String(),
		stream: stream,
		done:   make(chan struct{}),
	}
	c.logger.Printf("Starting run %s for test %q on channel %d", r.ID, node.Name, streamID)

	go r.collect()

	if err := discovery.Send(protocol.NewRunCommand(uint64(streamID))); err != nil {
		return nil, err
	}
	return r, nil
}

// RunTest executes a test and waits for its terminal complete message.
func (c *Controller) RunTest(node *protocol.TreeNode) (Observation, error) {
	r, err := c.StartTest(node)
	if err != nil {
		return Observation{}, err
	}
	return r.Await(defaultAwaitTimeout)
}

// Close asks the worker to terminate the run early. A complete message still
// follows, so Await remains the way to finish.
func (r *Run) Close() error {
	return r.stream.Send(protocol.NewCloseCommand())
}

// Await blocks until the run's complete message arrives or the timeout
// elapses.
func (r *Run) Await(timeout time.Duration) (Observation, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-r.done:
		r.lock.Lock()
		defer r.lock.Unlock()
		return r.obs, nil
	case <-deadline.C:
		return Observation{}, errors.New("timed out waiting for test run to complete")
	}
}

func (r *Run) collect() {
	for raw := range r.stream.Receive() {
		r.lock.Lock()
		if r.obs.Complete {
			r.obs.AfterComplete++
			r.lock.Unlock()
			continue
		}
		switch protocol.TypeOf(raw) {
		case protocol.TypeStateChange:
			var msg protocol.StateChange
			if json.Unmarshal(raw, &msg) == nil {
				r.obs.States = append(r.obs.States, msg)
			}
		case protocol.TypeError:
			var msg protocol.ErrorMessage
			if json.Unmarshal(raw, &msg) == nil {
				r.obs.Errors = append(r.obs.Errors, msg.Error)
			}
		case protocol.TypeMessage:
			var msg protocol.DiagnosticMessage
			if json.Unmarshal(raw, &msg) == nil {
				r.obs.Messages = append(r.obs.Messages, msg)
			}
		case protocol.TypeComplete:
			r.obs.Complete = true
			r.lock.Unlock()
			close(r.done)
			continue
		}
		r.lock.Unlock()
	}
}
