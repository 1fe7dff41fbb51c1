package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLoggerRecordsFormattedMessages(t *testing.T) {
	var l CapturingLogger
	before := time.Now()
	l.Printf("channel %d closed", 5)
	l.Printf("plain message")

	output := l.Output()
	require.Len(t, output, 2)
	assert.Equal(t, "channel 5 closed", output[0].Message)
	assert.Equal(t, "plain message", output[1].Message)
	assert.False(t, output[0].Time.Before(before))
}

func TestCapturedMessageString(t *testing.T) {
	m := CapturedMessage{
		Time:    time.Date(2026, 8, 29, 10, 30, 0, 250*int(time.Millisecond), time.UTC),
		Message: "hello",
	}
	assert.Equal(t, "[2026-08-29 10:30:00.250] hello", m.String())
}

func TestOutputReturnsACopy(t *testing.T) {
	var l CapturingLogger
	l.Printf("first")
	output := l.Output()
	l.Printf("second")
	assert.Len(t, output, 1)
	assert.Len(t, l.Output(), 2)
}
