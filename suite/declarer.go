package suite

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// TestFunc is the body of a test, setUp, or tearDown.
type TestFunc func(t *T)

// Declarer builds a group/test tree from an entry point's declarations. It is
// used from a single goroutine: the entry point runs to completion before
// Build is called, and declarations nest through Group's body callback.
type Declarer struct {
	root    *Group
	current *Group
	printer func(line string)
}

// NewDeclarer creates a declarer whose root group carries the suite-level
// metadata supplied by the host's initial configuration.
func NewDeclarer(rootMetadata Metadata) *Declarer {
	root := &Group{Metadata: rootMetadata}
	return &Declarer{root: root, current: root, printer: func(line string) { fmt.Println(line) }}
}

// SetPrinter routes Print/Printf output; the worker points this at its
// output-capture stack before running the entry point.
func (d *Declarer) SetPrinter(fn func(line string)) {
	if fn != nil {
		d.printer = fn
	}
}

// Group declares a named subtree. Declarations made inside body belong to the
// new group.
func (d *Declarer) Group(name string, metadata Metadata, body func()) {
	g := &Group{Name: name, Metadata: metadata, Trace: callerTrace()}
	parent := d.current
	parent.Entries = append(parent.Entries, g)
	d.current = g
	defer func() { d.current = parent }()
	body()
}

// Test declares a runnable test in the current group.
func (d *Declarer) Test(name string, metadata Metadata, fn TestFunc) {
	t := &Test{Name: name, Metadata: metadata, Trace: callerTrace(), fn: fn}
	d.current.Entries = append(d.current.Entries, t)
}

// SetUp registers a callback run before each test in the current group and
// its descendants.
func (d *Declarer) SetUp(fn TestFunc) {
	d.current.setUps = append(d.current.setUps, fn)
}

// TearDown registers a callback run after each test in the current group and
// its descendants.
func (d *Declarer) TearDown(fn TestFunc) {
	d.current.tearDowns = append(d.current.tearDowns, fn)
}

// SetUpAll declares the current group's one-time setup pseudo-test.
func (d *Declarer) SetUpAll(fn TestFunc) {
	d.current.SetUpAll = &Test{Name: "(setUpAll)", Trace: callerTrace(), fn: fn}
}

// TearDownAll declares the current group's one-time teardown pseudo-test.
func (d *Declarer) TearDownAll(fn TestFunc) {
	d.current.TearDownAll = &Test{Name: "(tearDownAll)", Trace: callerTrace(), fn: fn}
}

// Print emits a line of console output through the active capture scope.
func (d *Declarer) Print(args ...interface{}) {
	d.printer(fmt.Sprint(args...))
}

// Printf emits a formatted line of console output through the active capture
// scope.
func (d *Declarer) Printf(format string, args ...interface{}) {
	d.printer(fmt.Sprintf(format, args...))
}

// Build returns the finished tree. No declarations may be made afterward.
func (d *Declarer) Build() *Group {
	return d.root
}

func callerTrace() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
