package mux

import (
	"encoding/json"
	"sync"
)

// Channel is a logical duplex message stream multiplexed over the physical
// transport, addressed by an integer id. Callers hold a Channel handle, never
// the underlying Conn.
type Channel struct {
	id    ID
	owner *Muxer
	queue *messageQueue
}

func (c *Channel) ID() ID { return c.id }

// Send marshals message and writes the addressed frame to the physical
// transport before returning. The write happens synchronously under the
// muxer's write lock, so a message sent during setup is fully delivered to
// the transport even if the caller never yields to the scheduler afterward.
func (c *Channel) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.owner.send(c.id, data)
}

// Receive returns the channel's inbound queue. Messages appear in the order
// they were sent on the remote end of this virtual channel. The Go channel is
// closed when the transport closes.
func (c *Channel) Receive() <-chan json.RawMessage {
	return c.queue.C
}

// messageQueue is an unbounded FIFO feeding a Go channel. The demultiplexer
// must never block on a slow consumer of one virtual channel, because that
// would stall every other channel on the same transport, so deliveries are
// buffered without limit and pumped out by a dedicated goroutine.
type messageQueue struct {
	C         chan json.RawMessage
	buffered  []json.RawMessage
	lock      sync.Mutex
	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newMessageQueue() *messageQueue {
	q := &messageQueue{
		C:      make(chan json.RawMessage),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.pump()
	return q
}

func (q *messageQueue) push(message json.RawMessage) {
	q.lock.Lock()
	q.buffered = append(q.buffered, message)
	q.lock.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *messageQueue) pump() {
	for {
		q.lock.Lock()
		var next json.RawMessage
		have := len(q.buffered) > 0
		if have {
			next = q.buffered[0]
			q.buffered = q.buffered[1:]
		}
		q.lock.Unlock()

		if have {
			select {
			case q.C <- next:
			case <-q.done:
				close(q.C)
				return
			}
			continue
		}
		select {
		case <-q.signal:
		case <-q.done:
			close(q.C)
			return
		}
	}
}

func (q *messageQueue) close() {
	q.closeOnce.Do(func() { close(q.done) })
}
