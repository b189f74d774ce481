// Package streamtest provides an in-memory stream.Transport for tests.
package streamtest

import (
	"context"
	"errors"
	"sync"

	"github.com/rzbill/rtstream/pkg/stream"
)

// ErrConnClosed is returned by Recv after Close.
var ErrConnClosed = errors.New("streamtest: connection closed")

// ErrDialRefused is the default error for scripted dial failures.
var ErrDialRefused = errors.New("streamtest: dial refused")

// Transport is a scripted stream.Transport. Dials succeed unless FailDials
// queued failures.
type Transport struct {
	mu      sync.Mutex
	dials   int
	fail    []error
	conns   []*Conn
	endless error
}

// NewTransport returns a Transport whose dials succeed.
func NewTransport() *Transport { return &Transport{} }

// FailDials makes the next n dials fail with err (ErrDialRefused when nil).
func (t *Transport) FailDials(n int, err error) {
	if err == nil {
		err = ErrDialRefused
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < n; i++ {
		t.fail = append(t.fail, err)
	}
}

// FailAll makes every later dial fail with err until Recover is called.
func (t *Transport) FailAll(err error) {
	if err == nil {
		err = ErrDialRefused
	}
	t.mu.Lock()
	t.endless = err
	t.mu.Unlock()
}

// Recover clears FailAll and any queued failures.
func (t *Transport) Recover() {
	t.mu.Lock()
	t.endless = nil
	t.fail = nil
	t.mu.Unlock()
}

// Dial implements stream.Transport.
func (t *Transport) Dial(ctx context.Context, _ stream.Endpoint) (stream.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.endless != nil {
		return nil, t.endless
	}
	if len(t.fail) > 0 {
		err := t.fail[0]
		t.fail = t.fail[1:]
		return nil, err
	}
	c := newConn()
	t.conns = append(t.conns, c)
	return c, nil
}

// Dials returns how many times Dial was called.
func (t *Transport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

// Conns returns every connection handed out so far.
func (t *Transport) Conns() []*Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Conn(nil), t.conns...)
}

// Last returns the most recent connection, or nil.
func (t *Transport) Last() *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// OpenConns counts connections that have not been closed.
func (t *Transport) OpenConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.conns {
		if !c.Closed() {
			n++
		}
	}
	return n
}

type item struct {
	frame stream.Frame
	err   error
}

// Conn is a scripted stream.Conn. Push and Drop feed Recv in order.
type Conn struct {
	items  chan item
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	sent    [][]byte
	sendErr error
}

func newConn() *Conn {
	return &Conn{items: make(chan item, 1024), closed: make(chan struct{})}
}

// Push queues a frame with only data set.
func (c *Conn) Push(data string) { c.PushFrame(stream.Frame{Data: []byte(data)}) }

// PushFrame queues a frame.
func (c *Conn) PushFrame(f stream.Frame) { c.items <- item{frame: f} }

// Drop makes the next Recv fail with err after queued frames, simulating an
// abnormal close.
func (c *Conn) Drop(err error) {
	if err == nil {
		err = errors.New("streamtest: connection reset")
	}
	c.items <- item{err: err}
}

// Pending counts queued frames and drops not yet read by Recv.
func (c *Conn) Pending() int { return len(c.items) }

// FailSends makes later Send calls return err.
func (c *Conn) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// Recv implements stream.Conn.
func (c *Conn) Recv(ctx context.Context) (stream.Frame, error) {
	select {
	case <-c.closed:
		return stream.Frame{}, ErrConnClosed
	default:
	}
	select {
	case it := <-c.items:
		if it.err != nil {
			return stream.Frame{}, it.err
		}
		return it.frame, nil
	case <-c.closed:
		return stream.Frame{}, ErrConnClosed
	case <-ctx.Done():
		return stream.Frame{}, ctx.Err()
	}
}

// Send implements stream.Conn.
func (c *Conn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed() {
		return ErrConnClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

// Sent returns a copy of everything written with Send.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// Close implements stream.Conn.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
