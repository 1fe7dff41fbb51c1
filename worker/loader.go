package worker

import (
	"reflect"

	"github.com/testfabric/suite-worker/suite"
)

// Entry-point usage errors, reported to the host as loadException messages.
// These are configuration mistakes, distinct from failures thrown by the
// entry point itself.
const (
	msgNoEntryPoint       = "No top-level entry point defined."
	msgEntryPointNotFunc  = "Entry point is not a function."
	msgEntryPointBadShape = "Entry point takes arguments."
)

// checkEntryPoint validates the entry point's shape without invoking it.
// The expected shape is func(*suite.Declarer). It returns either the callable
// entry point or the loadException message describing why it is unusable.
func checkEntryPoint(value interface{}) (func(*suite.Declarer), string) {
	if value == nil {
		return nil, msgNoEntryPoint
	}
	if ep, ok := value.(func(*suite.Declarer)); ok {
		return ep, ""
	}
	if reflect.TypeOf(value).Kind() == reflect.Func {
		return nil, msgEntryPointBadShape
	}
	return nil, msgEntryPointNotFunc
}
