// Package mux turns one physical duplex message connection into an unbounded
// set of independently addressable virtual channels. Frames on the same
// virtual channel arrive in send order; nothing is guaranteed about the
// interleaving of different channels.
package mux

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/testfabric/suite-worker/logging"
	"github.com/testfabric/suite-worker/metrics"
)

// ID identifies one virtual channel within a multiplexed connection.
type ID uint64

// Parity determines which ids a Muxer mints for locally created channels.
// The two ends of a connection must use opposite parities so that both can
// create channels without coordinating. Channel 0 always exists on both ends.
type Parity int

const (
	OddIDs  Parity = 1
	EvenIDs Parity = 2
)

type frame struct {
	Channel ID              `json:"channel"`
	Message json.RawMessage `json:"message"`
}

// Muxer owns one Conn exclusively and demultiplexes inbound frames into
// per-channel queues. No other component may write to the Conn directly.
type Muxer struct {
	conn      Conn
	channels  map[ID]*Channel
	nextID    ID
	logger    logging.Logger
	lock      sync.Mutex
	writeLock sync.Mutex
}

// NewMuxer wraps conn in a multiplexer. The root channel (id 0) is created
// immediately and can be retrieved with Root. Run must be called for inbound
// frames to be delivered.
func NewMuxer(conn Conn, parity Parity, logger logging.Logger) *Muxer {
	if logger == nil {
		logger = logging.NullLogger()
	}
	m := &Muxer{
		conn:     conn,
		channels: make(map[ID]*Channel),
		nextID:   ID(parity),
		logger:   logger,
	}
	m.register(0)
	return m
}

// Root returns the channel with id 0, which exists on both ends of every
// connection without negotiation.
func (m *Muxer) Root() *Channel {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.channels[0]
}

// CreateLocal mints a fresh channel id and returns the new channel. The id
// must be communicated to the other end inside some other message before the
// peer can address it.
func (m *Muxer) CreateLocal() (*Channel, ID) {
	m.lock.Lock()
	defer m.lock.Unlock()
	id := m.nextID
	m.nextID += 2
	return m.registerLocked(id), id
}

// CreateRemote attaches to a channel whose id was minted by the other end
// and received out-of-band (as a field inside another message).
func (m *Muxer) CreateRemote(id ID) (*Channel, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.channels[id]; ok {
		return nil, fmt.Errorf("channel id %d is already in use", id)
	}
	return m.registerLocked(id), nil
}

func (m *Muxer) register(id ID) *Channel {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.registerLocked(id)
	return m.channels[id]
}

func (m *Muxer) registerLocked(id ID) *Channel {
	ch := &Channel{id: id, owner: m, queue: newMessageQueue()}
	m.channels[id] = ch
	return ch
}

// Run reads frames from the Conn and routes each to its channel's inbound
// queue until the transport closes. A frame addressed to an unknown channel
// id is treated as a stale message from a channel the sender already
// considers closed: it is dropped, counted, and never crashes the reader.
func (m *Muxer) Run() error {
	defer m.closeAll()
	for {
		data, err := m.conn.Receive()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		metrics.RecordFrameReceived()

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Printf("Dropping malformed frame: %s", err)
			metrics.RecordFrameDropped()
			continue
		}

		m.lock.Lock()
		ch := m.channels[f.Channel]
		m.lock.Unlock()
		if ch == nil {
			m.logger.Printf("Dropping frame for unknown channel %d", f.Channel)
			metrics.RecordFrameDropped()
			continue
		}
		ch.queue.push(f.Message)
	}
}

// Close shuts down the underlying transport, causing Run to return and all
// channel queues to close.
func (m *Muxer) Close() error {
	return m.conn.Close()
}

func (m *Muxer) send(id ID, message json.RawMessage) error {
	data, err := json.Marshal(frame{Channel: id, Message: message})
	if err != nil {
		return err
	}
	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	if err := m.conn.Send(data); err != nil {
		return err
	}
	metrics.RecordFrameSent()
	return nil
}

func (m *Muxer) closeAll() {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, ch := range m.channels {
		ch.queue.close()
	}
}
