package mux

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// Conn is one end of the physical transport that a Muxer multiplexes over.
// The transport itself (pipes between processes, a socket, etc.) is owned by
// the surrounding process-management layer; the multiplexer only requires
// these three operations.
type Conn interface {
	// Send writes one message. Implementations must preserve message
	// boundaries and must be safe for concurrent use.
	Send(data []byte) error

	// Receive blocks until the next message arrives, returning io.EOF once
	// the other end has closed.
	Receive() ([]byte, error)

	Close() error
}

const pipeBufferSize = 1000

type pipeConn struct {
	in        chan []byte
	peer      *pipeConn
	done      chan struct{}
	closeOnce sync.Once
}

// Pipe returns two connected in-memory Conns. Messages sent on one end are
// received on the other, in order. Used by tests and by the in-process demo
// harness.
func Pipe() (Conn, Conn) {
	a := &pipeConn{in: make(chan []byte, pipeBufferSize), done: make(chan struct{})}
	b := &pipeConn{in: make(chan []byte, pipeBufferSize), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (c *pipeConn) Send(data []byte) error {
	copied := append([]byte(nil), data...)
	select {
	case c.peer.in <- copied:
		return nil
	case <-c.done:
		return errors.New("connection is closed")
	case <-c.peer.done:
		return errors.New("peer connection is closed")
	}
}

func (c *pipeConn) Receive() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.done:
		return nil, io.EOF
	case <-c.peer.done:
		// Drain anything that was sent before the peer closed.
		select {
		case data := <-c.in:
			return data, nil
		default:
			return nil, io.EOF
		}
	}
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

type lineConn struct {
	reader    *bufio.Reader
	writer    io.Writer
	closer    io.Closer
	writeLock sync.Mutex
}

// NewLineConn adapts a byte stream pair (typically a subprocess's stdin and
// stdout) into a Conn carrying newline-delimited messages. closer may be nil.
func NewLineConn(r io.Reader, w io.Writer, closer io.Closer) Conn {
	return &lineConn{reader: bufio.NewReader(r), writer: w, closer: closer}
}

func (c *lineConn) Send(data []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if _, err := c.writer.Write(data); err != nil {
		return err
	}
	_, err := c.writer.Write([]byte("\n"))
	return err
}

func (c *lineConn) Receive() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line[:len(line)-1], nil
}

func (c *lineConn) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
