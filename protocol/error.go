package protocol

import (
	"fmt"
)

// ErrorRecord is the transport-safe form of an arbitrary failure value plus
// its stack trace. The original value's identity and type do not survive the
// boundary; only enough information to display the failure does.
type ErrorRecord struct {
	Description string `json:"description"`
	StackTrace  string `json:"stackTrace"`
}

// SerializeError converts a failure value (an error, a panic value, or
// anything else) and its stack text into an ErrorRecord.
func SerializeError(value interface{}, stack string) ErrorRecord {
	var description string
	switch v := value.(type) {
	case error:
		description = v.Error()
	case string:
		description = v
	default:
		description = fmt.Sprintf("%+v", v)
	}
	return ErrorRecord{Description: description, StackTrace: stack}
}

// RemoteError is the best-effort reconstruction of a failure on the receiving
// side of the boundary.
type RemoteError struct {
	Record ErrorRecord
}

func (e *RemoteError) Error() string {
	return e.Record.Description
}

// AsError converts the record back into an error value for host-side
// reporting.
func (r ErrorRecord) AsError() error {
	return &RemoteError{Record: r}
}
