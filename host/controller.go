// Package host implements the controlling side of the suite protocol, used
// by the demo harness and by integration tests: it performs the discovery
// handshake with a worker and drives individual test runs.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/testfabric/suite-worker/logging"
	"github.com/testfabric/suite-worker/mux"
	"github.com/testfabric/suite-worker/protocol"
)

const defaultAwaitTimeout = time.Second * 10

// LoadError is a configuration/usage failure reported by the worker as a
// loadException. It is never worth retrying.
type LoadError struct {
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("suite failed to load: %s", e.Message)
}

// Controller drives one worker over one connection.
type Controller struct {
	mux    *mux.Muxer
	root   *mux.Channel
	logger logging.Logger

	testChannels map[uint64]*mux.Channel
	lock         sync.Mutex

	muxDone chan error
}

// Connect attaches a controller to the host end of a worker connection and
// starts reading frames.
func Connect(conn mux.Conn, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NullLogger()
	}
	c := &Controller{
		mux:          mux.NewMuxer(conn, mux.EvenIDs, logger),
		logger:       logger,
		testChannels: make(map[uint64]*mux.Channel),
		muxDone:      make(chan error, 1),
	}
	c.root = c.mux.Root()
	go func() { c.muxDone <- c.mux.Run() }()
	return c
}

// Discovery is the result of a successful handshake: the serialized suite
// tree plus any console output captured while it loaded.
type Discovery struct {
	Root   *protocol.TreeNode
	Prints []string
}

// Tests returns every runnable test node in the tree paired with its
// slash-joined path, in declaration order. SetUpAll/tearDownAll pseudo-tests
// are included.
func (d *Discovery) Tests() []DiscoveredTest {
	var tests []DiscoveredTest
	collectTests(d.Root, nil, &tests)
	return tests
}

// DiscoveredTest is one runnable node plus the group path leading to it.
type DiscoveredTest struct {
	Path string
	Node *protocol.TreeNode
}

func collectTests(node *protocol.TreeNode, path []string, out *[]DiscoveredTest) {
	if node.Type == protocol.NodeTypeTest {
		*out = append(*out, DiscoveredTest{Path: joinPath(append(path, node.Name)), Node: node})
		return
	}
	if node.Name != "" {
		path = append(path, node.Name)
	}
	if node.SetUpAll != nil {
		collectTests(node.SetUpAll, path, out)
	}
	for _, entry := range node.Entries {
		collectTests(entry, path, out)
	}
	if node.TearDownAll != nil {
		collectTests(node.TearDownAll, path, out)
	}
}

func joinPath(parts []string) string {
	return strings.Join(parts, "/")
}

// Start sends the initial configuration and waits for the worker to either
// produce the suite tree or report a failure. A loadException becomes a
// *LoadError; a declaration-time error becomes a *protocol.RemoteError.
func (c *Controller) Start(cfg protocol.InitialConfig) (*Discovery, error) {
	if err := c.root.Send(cfg); err != nil {
		return nil, err
	}
	return c.AwaitDiscovery()
}

// AwaitDiscovery collects root-channel messages until the handshake resolves.
// It is separated from Start because a load failure may already be waiting
// before any configuration is sent.
func (c *Controller) AwaitDiscovery() (*Discovery, error) {
	discovery := &Discovery{}
	deadline := time.NewTimer(defaultAwaitTimeout)
	defer deadline.Stop()
	for {
		select {
		case raw, ok := <-c.root.Receive():
			if !ok {
				return nil, errors.New("connection closed before suite finished loading")
			}
			switch protocol.TypeOf(raw) {
			case protocol.TypePrint:
				var msg protocol.Print
				if err := json.Unmarshal(raw, &msg); err == nil {
					c.logger.Printf("Worker output: %s", msg.Line)
					discovery.Prints = append(discovery.Prints, msg.Line)
				}
			case protocol.TypeLoadException:
				var msg protocol.LoadException
				if err := json.Unmarshal(raw, &msg); err != nil {
					return nil, err
				}
				return nil, &LoadError{Message: msg.Message}
			case protocol.TypeError:
				var msg protocol.ErrorMessage
				if err := json.Unmarshal(raw, &msg); err != nil {
					return nil, err
				}
				return nil, msg.Error.AsError()
			case protocol.TypeSuccess:
				var msg protocol.Success
				if err := json.Unmarshal(raw, &msg); err != nil {
					return nil, err
				}
				discovery.Root = msg.Root
				return discovery, nil
			default:
				c.logger.Printf("Ignoring unexpected message during handshake: %s", string(raw))
			}
		case <-deadline.C:
			return nil, errors.New("timed out waiting for suite to load")
		}
	}
}

// Close shuts down the connection to the worker.
func (c *Controller) Close() error {
	return c.mux.Close()
}

func (c *Controller) discoveryChannel(node *protocol.TreeNode) (*mux.Channel, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if ch := c.testChannels[node.Channel]; ch != nil {
		return ch, nil
	}
	ch, err := c.mux.CreateRemote(mux.ID(node.Channel))
	if err != nil {
		return nil, err
	}
	c.testChannels[node.Channel] = ch
	return ch, nil
}
