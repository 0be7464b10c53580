package notifier

import (
	"sync"

	"github.com/heyu-project/heyud/internal/protocol"
)

// eventQueue is the in-memory FIFO with a has-items signal from spec §5:
// producers (the connection's read loop, and Stop/Shutdown) append and
// signal; the single consumer (a sink driver, via Notifier.Next) drains
// until empty then waits. sync.Cond is the standard library's direct
// expression of that contract — no queue library in the wider dependency
// surface offers a closable, drop-on-demand FIFO any more directly.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*protocol.Message
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends msg and wakes the consumer. A push after close is a no-op:
// the stream has already ended.
func (q *eventQueue) push(msg *protocol.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, msg)
	q.cond.Signal()
}

// drop discards any unconsumed items without closing the queue, per
// SIGUSR1 shutdown's "clear any unconsumed notifications".
func (q *eventQueue) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// close injects the terminal sentinel: once the remaining items (if any)
// are drained, next returns ok=false forever after.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Signal()
}

// next blocks until an item is available or the queue has been closed and
// fully drained.
func (q *eventQueue) next() (*protocol.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}
