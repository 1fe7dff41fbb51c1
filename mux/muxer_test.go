package mux

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testfabric/suite-worker/logging"
)

type testMessage struct {
	Value string `json:"value"`
}

func newMuxerPair(t *testing.T) (*Muxer, *Muxer) {
	connA, connB := Pipe()
	a := NewMuxer(connA, OddIDs, logging.NullLogger())
	b := NewMuxer(connB, EvenIDs, logging.NullLogger())
	go func() { _ = a.Run() }()
	go func() { _ = b.Run() }()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func expectMessage(t *testing.T, ch *Channel, expected string) {
	t.Helper()
	select {
	case raw, ok := <-ch.Receive():
		require.True(t, ok, "channel %d closed while waiting for a message", ch.ID())
		var msg testMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, expected, msg.Value)
	case <-time.After(time.Second):
		require.Fail(t, "timed out waiting for message", "channel %d, expected %q", ch.ID(), expected)
	}
}

func expectNoMessage(t *testing.T, ch *Channel) {
	t.Helper()
	select {
	case raw := <-ch.Receive():
		require.Fail(t, "expected no message", "channel %d got %s", ch.ID(), string(raw))
	case <-time.After(time.Millisecond * 100):
	}
}

func TestRootChannelExistsOnBothEnds(t *testing.T) {
	a, b := newMuxerPair(t)

	require.NoError(t, a.Root().Send(testMessage{Value: "hello"}))
	expectMessage(t, b.Root(), "hello")

	require.NoError(t, b.Root().Send(testMessage{Value: "back"}))
	expectMessage(t, a.Root(), "back")
}

func TestMessagesOnOneChannelArriveInSendOrder(t *testing.T) {
	a, b := newMuxerPair(t)

	local, id := a.CreateLocal()
	remote, err := b.CreateRemote(id)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, local.Send(testMessage{Value: fmt.Sprintf("msg-%d", i)}))
	}
	for i := 0; i < 50; i++ {
		expectMessage(t, remote, fmt.Sprintf("msg-%d", i))
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	a, b := newMuxerPair(t)

	local1, id1 := a.CreateLocal()
	local2, id2 := a.CreateLocal()
	remote1, err := b.CreateRemote(id1)
	require.NoError(t, err)
	remote2, err := b.CreateRemote(id2)
	require.NoError(t, err)

	require.NoError(t, local2.Send(testMessage{Value: "on-two"}))
	require.NoError(t, local1.Send(testMessage{Value: "on-one"}))

	expectMessage(t, remote1, "on-one")
	expectMessage(t, remote2, "on-two")
}

func TestLocalIDsUseOppositeParities(t *testing.T) {
	a, b := newMuxerPair(t)

	seen := make(map[ID]bool)
	for i := 0; i < 10; i++ {
		_, idA := a.CreateLocal()
		_, idB := b.CreateLocal()
		assert.Equal(t, uint64(1), uint64(idA)%2, "worker-side ids should be odd")
		assert.Equal(t, uint64(0), uint64(idB)%2, "host-side ids should be even")
		assert.False(t, seen[idA], "id %d minted twice", idA)
		assert.False(t, seen[idB], "id %d minted twice", idB)
		seen[idA] = true
		seen[idB] = true
	}
}

func TestCreateRemoteRejectsIDAlreadyInUse(t *testing.T) {
	a, _ := newMuxerPair(t)

	_, err := a.CreateRemote(2)
	require.NoError(t, err)
	_, err = a.CreateRemote(2)
	require.Error(t, err)

	_, err = a.CreateRemote(0)
	require.Error(t, err, "root channel id is always in use")
}

func TestFrameForUnknownChannelIsDropped(t *testing.T) {
	a, b := newMuxerPair(t)

	local, id := a.CreateLocal()
	remote, err := b.CreateRemote(id)
	require.NoError(t, err)

	// No channel 99 exists on the B side.
	orphan, _ := a.CreateRemote(99)
	require.NoError(t, orphan.Send(testMessage{Value: "stale"}))

	// The multiplexer keeps working and other channels are unaffected.
	require.NoError(t, local.Send(testMessage{Value: "still-alive"}))
	expectMessage(t, remote, "still-alive")
	expectNoMessage(t, b.Root())
}

func TestMalformedFrameIsDropped(t *testing.T) {
	connA, connB := Pipe()
	b := NewMuxer(connB, EvenIDs, logging.NullLogger())
	go func() { _ = b.Run() }()
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, connA.Send([]byte("this is not json")))

	a := NewMuxer(connA, OddIDs, logging.NullLogger())
	go func() { _ = a.Run() }()
	require.NoError(t, a.Root().Send(testMessage{Value: "after-garbage"}))
	expectMessage(t, b.Root(), "after-garbage")
}

func TestQueuesCloseWhenTransportCloses(t *testing.T) {
	a, b := newMuxerPair(t)

	local, id := a.CreateLocal()
	remote, err := b.CreateRemote(id)
	require.NoError(t, err)
	require.NoError(t, local.Send(testMessage{Value: "last"}))
	expectMessage(t, remote, "last")

	require.NoError(t, a.Close())

	select {
	case _, ok := <-remote.Receive():
		assert.False(t, ok, "queue should be closed, not delivering")
	case <-time.After(time.Second):
		require.Fail(t, "timed out waiting for queue to close")
	}
}
