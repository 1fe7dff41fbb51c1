// Package protocol defines the tagged message records exchanged between a
// suite worker and its controlling host, along with the serialized tree and
// error shapes they carry. Every message except the host's initial
// configuration carries a "type" field selecting the shape of the rest.
package protocol

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	TypeLoadException = "loadException"
	TypeError         = "error"
	TypePrint         = "print"
	TypeSuccess       = "success"
	TypeRun           = "run"
	TypeClose         = "close"
	TypeStateChange   = "state-change"
	TypeMessage       = "message"
	TypeComplete      = "complete"
)

// TypeOf extracts the tag from a raw message, returning "" if the message is
// malformed or untagged.
func TypeOf(raw json.RawMessage) string {
	var t struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t.Type
}

// LoadException reports that the suite failed to load because of a
// configuration or usage error, as opposed to a failure in user code. The
// host should report it without retrying.
type LoadException struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewLoadException(message string) LoadException {
	return LoadException{Type: TypeLoadException, Message: message}
}

// ErrorMessage carries a serialized user-code failure, either from suite
// declaration or from an individual test run.
type ErrorMessage struct {
	Type  string      `json:"type"`
	Error ErrorRecord `json:"error"`
}

func NewErrorMessage(record ErrorRecord) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: record}
}

// Print carries one line of console output captured while the suite was
// loading.
type Print struct {
	Type string `json:"type"`
	Line string `json:"line"`
}

func NewPrint(line string) Print {
	return Print{Type: TypePrint, Line: line}
}

// Success reports that the suite loaded; Root describes the discovered tree.
type Success struct {
	Type string    `json:"type"`
	Root *TreeNode `json:"root"`
}

func NewSuccess(root *TreeNode) Success {
	return Success{Type: TypeSuccess, Root: root}
}

// InitialConfig is the first message the host sends on the root channel. It
// is the only untagged record in the protocol.
type InitialConfig struct {
	Metadata ldvalue.Value          `json:"metadata"`
	Platform string                 `json:"platform"`
	OS       ldvalue.OptionalString `json:"os,omitempty"`
}

// RunCommand asks the worker to execute the test whose discovery channel it
// arrives on. Channel is the id of a freshly opened streaming channel, minted
// by the host, on which the worker will relay the live run.
type RunCommand struct {
	Type    string `json:"type"`
	Channel uint64 `json:"channel"`
}

func NewRunCommand(channel uint64) RunCommand {
	return RunCommand{Type: TypeRun, Channel: channel}
}

// CloseCommand requests early termination of the running test. A complete
// message still follows.
type CloseCommand struct {
	Type string `json:"type"`
}

func NewCloseCommand() CloseCommand {
	return CloseCommand{Type: TypeClose}
}

// StateChange reports a live status transition on a streaming channel.
type StateChange struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Result string `json:"result"`
}

func NewStateChange(status, result string) StateChange {
	return StateChange{Type: TypeStateChange, Status: status, Result: result}
}

// DiagnosticMessage carries output emitted during a test run. MessageType is
// "print" for ordinary output and "skip" for a skip notice.
type DiagnosticMessage struct {
	Type        string `json:"type"`
	MessageType string `json:"message-type"`
	Text        string `json:"text"`
}

func NewDiagnosticMessage(messageType, text string) DiagnosticMessage {
	return DiagnosticMessage{Type: TypeMessage, MessageType: messageType, Text: text}
}

// Complete is the terminal message of a run; it is always the last message
// sent on a streaming channel.
type Complete struct {
	Type string `json:"type"`
}

func NewComplete() Complete {
	return Complete{Type: TypeComplete}
}
