package session

import (
	"sync"

	"ponder-engine/engine"
	"ponder-engine/rules"
)

// NotificationType tells what a Notification carries.
type NotificationType uint8

const (
	// Exploring reports one root move searched at some depth.
	Exploring NotificationType = iota
	// Interim reports a new best line after a completed depth, or a forced move.
	Interim
	// Progress reports completion as a percentage. Live requests only.
	Progress
	// Final carries the Result. Always the last notification of a request.
	Final
)

func (t NotificationType) String() string {
	switch t {
	case Exploring:
		return "exploring"
	case Interim:
		return "interim"
	case Progress:
		return "progress"
	case Final:
		return "final"
	}
	return "unknown"
}

// Notification is one event of a request's stream.
type Notification struct {
	Type NotificationType
	ID   uint64
	Kind Kind

	Depth     int
	Move      rules.Move
	Score     int32
	Variation engine.Variation
	Percent   int

	// Result is set on Final notifications only.
	Result *Result
}

// Listener receives notifications on the session's dispatcher goroutine, in
// the order they were produced. It must not block for long.
type Listener func(Notification)

// outbox is an unbounded FIFO drained by a single goroutine so listeners never
// run under session locks and never stall the search.
type outbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Notification
	closed bool
}

func newOutbox() *outbox {
	o := &outbox{}
	o.cond = sync.NewCond(&o.mu)
	return o
}

func (o *outbox) push(n Notification) {
	o.mu.Lock()
	if !o.closed {
		o.queue = append(o.queue, n)
		o.cond.Signal()
	}
	o.mu.Unlock()
}

// close lets run return once the queue is drained.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()
}

func (o *outbox) run(l Listener) {
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if len(o.queue) == 0 {
			o.mu.Unlock()
			return
		}
		n := o.queue[0]
		o.queue[0] = Notification{}
		o.queue = o.queue[1:]
		o.mu.Unlock()

		if l != nil {
			l(n)
		}
	}
}
