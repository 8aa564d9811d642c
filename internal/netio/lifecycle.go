package netio

import (
	"sync/atomic"
	"time"
)

// LineSink is a diagnostic sink: a single thread-safe "append line" method.
// The core only ever writes to it, never reads.
type LineSink interface {
	AppendLine(line string)
}

// Lifecycle is a cooperative atomic run flag plus the start/stop contract
// shared by the sender and receiver state machines. Embedding it gives
// both machines identical start/stop/idle semantics.
type Lifecycle struct {
	running atomic.Bool
}

// Start marks the machine running; call once before work().
func (l *Lifecycle) Start() {
	l.running.Store(true)
}

// Stop requests that work() return at the next outer-loop check. Safe to
// call more than once; a second call is a no-op.
func (l *Lifecycle) Stop() {
	l.running.Store(false)
}

// ShouldContinue is checked once per outer iteration of work().
func (l *Lifecycle) ShouldContinue() bool {
	return l.running.Load()
}

// idle sleeps a state's declared idle duration, applied whenever a step
// didn't change state and didn't already sleep internally.
func idle(d time.Duration) {
	time.Sleep(d)
}

const (
	setupIdle = 1 * time.Second
	ioIdle    = 10 * time.Millisecond
)
