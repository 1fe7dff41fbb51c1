// Package worker implements the worker side of the suite protocol: it loads
// one suite's entry point inside this process, reports the discovered tree to
// the host over a multiplexed connection, and relays live test runs on
// request.
package worker

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/testfabric/suite-worker/console"
	"github.com/testfabric/suite-worker/logging"
	"github.com/testfabric/suite-worker/mux"
	"github.com/testfabric/suite-worker/protocol"
	"github.com/testfabric/suite-worker/suite"
)

// Listener serves one suite over one connection for the lifetime of the
// worker process.
type Listener struct {
	mux     *mux.Muxer
	opts    Options
	logger  logging.Logger
	console *console.Stack
	suite   *suite.Suite

	// Tests run one at a time; the worker is a single logical execution
	// context even though each test channel has its own reader goroutine.
	runLock sync.Mutex
}

// Serve runs the worker side of the protocol on conn until the host closes
// the connection. entryPoint is the suite's entry point value; its shape is
// validated before anything is invoked. Serve reports load failures to the
// host rather than returning them: the returned error is only ever a
// transport failure.
func Serve(conn mux.Conn, entryPoint interface{}, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	l := &Listener{
		opts:    opts,
		logger:  logger,
		console: console.NewStack(opts.AmbientOutput),
	}
	l.mux = mux.NewMuxer(conn, mux.OddIDs, logger)

	muxDone := make(chan error, 1)
	go func() { muxDone <- l.mux.Run() }()

	root := l.mux.Root()

	// The capability check happens before anything else, and its failure
	// report is flushed synchronously by Channel.Send: a host that treats
	// "no load error yet" as success after one tick cannot race past it.
	ep, loadMsg := checkEntryPoint(entryPoint)
	if loadMsg != "" {
		if err := root.Send(protocol.NewLoadException(loadMsg)); err != nil {
			return err
		}
		return <-muxDone
	}

	raw, ok := <-root.Receive()
	if !ok {
		return <-muxDone
	}
	var cfg protocol.InitialConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		if err := root.Send(protocol.NewLoadException(fmt.Sprintf("Malformed initial configuration: %s", err))); err != nil {
			return err
		}
		return <-muxDone
	}

	platform, err := suite.FindPlatform(cfg.Platform)
	if err != nil {
		if err := root.Send(protocol.NewLoadException(err.Error())); err != nil {
			return err
		}
		return <-muxDone
	}
	os := suite.OSNone
	if cfg.OS.IsDefined() {
		os, err = suite.FindOS(cfg.OS.StringValue())
		if err != nil {
			if err := root.Send(protocol.NewLoadException(err.Error())); err != nil {
				return err
			}
			return <-muxDone
		}
	}

	rootMetadata := suite.DeserializeMetadata(cfg.Metadata)
	if l.opts.DefaultTimeout > 0 && rootMetadata.Timeout == 0 {
		rootMetadata.Timeout = l.opts.DefaultTimeout
	}

	declarer := suite.NewDeclarer(rootMetadata)
	declarer.SetPrinter(l.console.Print)

	if declErr := l.declare(root, declarer, ep); declErr != nil {
		if err := root.Send(protocol.NewErrorMessage(*declErr)); err != nil {
			return err
		}
		return <-muxDone
	}

	l.suite = suite.NewSuite(platform, os, declarer.Build())
	tree := l.serializeGroup(l.suite.Root, nil)
	if err := root.Send(protocol.NewSuccess(tree)); err != nil {
		return err
	}

	return <-muxDone
}

// declare runs the entry point inside an output-capture scope, forwarding
// each captured line to the host immediately. A panic during declaration is
// returned as a serialized error rather than a load exception, because it
// comes from user code.
func (l *Listener) declare(root *mux.Channel, declarer *suite.Declarer, ep func(*suite.Declarer)) (declErr *protocol.ErrorRecord) {
	sink := console.FuncSink(func(line string) {
		if err := root.Send(protocol.NewPrint(line)); err != nil {
			l.logger.Printf("Failed to forward output line: %s", err)
		}
		if l.opts.ForwardOutput {
			l.console.Echo("print", line)
		}
	})
	l.console.With(sink, func() {
		defer func() {
			if r := recover(); r != nil {
				record := protocol.SerializeError(r, string(debug.Stack()))
				declErr = &record
			}
		}()
		ep(declarer)
	})
	return declErr
}
