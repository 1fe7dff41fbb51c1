// Package console models output capture as an explicit scope: a stack of
// active sinks owned by one worker instance. While a capture scope is active,
// lines printed through the stack go to the innermost sink; otherwise they go
// to the ambient writer. There is no global redirection of any kind.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Sink receives captured output one line at a time.
type Sink interface {
	Line(text string)
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(text string)

func (f FuncSink) Line(text string) { f(text) }

// WriterSink writes each line to an io.Writer.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Line(text string) {
	fmt.Fprintln(s.W, text)
}

var (
	errorColor = color.New(color.FgRed)
	skipColor  = color.New(color.FgYellow)
)

// Stack is the set of currently active capture sinks plus the ambient output
// writer that lines fall through to when no capture scope is active.
type Stack struct {
	sinks   []Sink
	ambient Sink
	out     io.Writer
	lock    sync.Mutex
}

// NewStack creates a Stack with the given ambient writer; nil means stdout.
func NewStack(out io.Writer) *Stack {
	if out == nil {
		out = os.Stdout
	}
	return &Stack{ambient: WriterSink{W: out}, out: out}
}

// With runs fn with sink pushed as the active capture scope. The scope is
// popped when fn returns, including by panic.
func (s *Stack) With(sink Sink, fn func()) {
	s.lock.Lock()
	s.sinks = append(s.sinks, sink)
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		s.sinks = s.sinks[:len(s.sinks)-1]
		s.lock.Unlock()
	}()
	fn()
}

// Print routes one line to the active capture sink, or to the ambient writer
// if no scope is active.
func (s *Stack) Print(text string) {
	s.lock.Lock()
	sink := s.ambient
	if len(s.sinks) > 0 {
		sink = s.sinks[len(s.sinks)-1]
	}
	s.lock.Unlock()
	sink.Line(text)
}

// Echo writes directly to the ambient writer, bypassing any capture scope,
// colorized by message kind ("error" red, "skip" yellow). The relay uses
// this to keep local observation working while output is also being
// forwarded to the host.
func (s *Stack) Echo(kind, text string) {
	switch kind {
	case "error":
		errorColor.Fprintln(s.out, text)
	case "skip":
		skipColor.Fprintln(s.out, text)
	default:
		fmt.Fprintln(s.out, text)
	}
}
