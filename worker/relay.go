package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/testfabric/suite-worker/metrics"
	"github.com/testfabric/suite-worker/mux"
	"github.com/testfabric/suite-worker/protocol"
	"github.com/testfabric/suite-worker/suite"
)

// serveTest handles one test's discovery channel. It accepts exactly one run
// command; anything else is a protocol violation and is dropped without
// affecting the worker.
func (l *Listener) serveTest(ch *mux.Channel, t *suite.Test, ancestors []*suite.Group) {
	ran := false
	for raw := range ch.Receive() {
		var cmd protocol.RunCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type != protocol.TypeRun {
			l.logger.Printf("Ignoring unexpected message on discovery channel %d for test %q", ch.ID(), t.Name)
			continue
		}
		if ran {
			l.logger.Printf("Ignoring duplicate run command for test %q", t.Name)
			continue
		}
		stream, err := l.mux.CreateRemote(mux.ID(cmd.Channel))
		if err != nil {
			l.logger.Printf("Rejecting run command for test %q: %s", t.Name, err)
			continue
		}
		ran = true
		l.runTest(stream, t, ancestors)
	}
}

// runTest executes one live test and relays everything it produces to the
// host on the streaming channel. Exactly one complete message is sent per
// run, and it is always the last message on the channel.
func (l *Listener) runTest(stream *mux.Channel, t *suite.Test, ancestors []*suite.Group) {
	l.runLock.Lock()
	defer l.runLock.Unlock()

	lt := suite.NewLiveTest(t, ancestors)

	// The host may request early termination at any point during the run.
	go func() {
		for raw := range stream.Receive() {
			if protocol.TypeOf(raw) == protocol.TypeClose {
				lt.Close()
			} else {
				l.logger.Printf("Ignoring unexpected message on streaming channel %d", stream.ID())
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for state := range lt.States() {
			l.send(stream, protocol.NewStateChange(string(state.Status), string(state.Result)))
		}
	}()

	go func() {
		defer wg.Done()
		for testErr := range lt.Errors() {
			record := protocol.SerializeError(testErr.Value, testErr.Stack)
			l.send(stream, protocol.NewErrorMessage(record))
			metrics.RecordErrorRelayed()
			if l.opts.ForwardOutput {
				l.console.Echo("error", record.Description)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for msg := range lt.Messages() {
			l.send(stream, protocol.NewDiagnosticMessage(string(msg.Type), msg.Text))
			metrics.RecordLineForwarded()
			if l.opts.ForwardOutput {
				l.console.Echo(string(msg.Type), msg.Text)
			}
		}
	}()

	lt.Run(context.Background())
	wg.Wait()

	l.send(stream, protocol.NewComplete())
	metrics.RecordTestRun(string(lt.Result()))
}

func (l *Listener) send(stream *mux.Channel, message interface{}) {
	if err := stream.Send(message); err != nil {
		l.logger.Printf("Failed to send %s on channel %d: %s", describeMessage(message), stream.ID(), err)
	}
}

func describeMessage(message interface{}) string {
	switch m := message.(type) {
	case protocol.StateChange:
		return m.Type
	case protocol.ErrorMessage:
		return m.Type
	case protocol.DiagnosticMessage:
		return m.Type
	case protocol.Complete:
		return m.Type
	default:
		return fmt.Sprintf("%T", message)
	}
}
