package mux

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeDeliversMessagesInOrder(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, a.Send([]byte("one")))
	require.NoError(t, a.Send([]byte("two")))

	data, err := b.Receive()
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
	data, err = b.Receive()
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestPipeReceiveAfterPeerCloseDrainsThenEOF(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, a.Send([]byte("pending")))
	require.NoError(t, a.Close())

	data, err := b.Receive()
	require.NoError(t, err)
	assert.Equal(t, "pending", string(data))

	_, err = b.Receive()
	assert.Equal(t, io.EOF, err)
}

func TestPipeSendToClosedPeerFails(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, b.Close())
	assert.Error(t, a.Send([]byte("too late")))
}

func TestLineConnFramesMessagesByNewline(t *testing.T) {
	var out bytes.Buffer
	in := bytes.NewBufferString("{\"first\":1}\n{\"second\":2}\n")
	conn := NewLineConn(in, &out, nil)

	data, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"first":1}`, string(data))
	data, err = conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"second":2}`, string(data))

	_, err = conn.Receive()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, conn.Send([]byte(`{"reply":true}`)))
	assert.Equal(t, "{\"reply\":true}\n", out.String())
}
