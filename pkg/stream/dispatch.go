package stream

import "sync"

type noticeKind uint8

const (
	noticeMessage noticeKind = iota + 1
	noticeState
	noticeError
)

type notice struct {
	kind   noticeKind
	msg    InboundMessage
	change StateChange
	err    error
}

// queue is an unbounded FIFO drained by one dispatcher goroutine. Message
// notices are bounded separately by the client's in-flight window.
type queue struct {
	mu     sync.Mutex
	items  []notice
	wake   chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

func (q *queue) push(n notice) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, n)
	q.mu.Unlock()
	q.signal()
}

// close stops accepting notices. Queued notices are still popped.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop blocks until a notice is available. It returns false once the queue is
// closed and empty.
func (q *queue) pop() (notice, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			n := q.items[0]
			q.items[0] = notice{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return n, true
		}
		if q.closed {
			q.mu.Unlock()
			return notice{}, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}
