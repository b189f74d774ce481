package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/rzbill/rtstream/pkg/log"
)

// Client owns one logical connection to an Endpoint. A Client is safe for
// concurrent use. Build one per endpoint with New.
type Client struct {
	ep          Endpoint
	transport   Transport
	decode      Decoder
	clock       clock.Clock
	logger      log.Logger
	id          string
	maxInFlight int
	inflight    chan struct{}

	messages registry[func(InboundMessage)]
	changes  registry[func(StateChange)]
	errs     registry[func(error)]

	// halted stops message delivery once Close is called.
	halted atomic.Bool
	q      *queue
	done   chan struct{}

	mu       sync.Mutex
	state    State
	session  uint64
	failures int
	failed   bool
	closed   bool
	conn     Conn
	cancel   context.CancelFunc
	timer    *clock.Timer
	seq      uint64
	started  bool
}

// New builds a Client in StateIdle. It does not connect; call Connect.
// A zero Policy is replaced by DefaultPolicy and a zero Kind means duplex.
func New(ep Endpoint, t Transport, opts ...Option) *Client {
	if ep.Policy == (Policy{}) {
		ep.Policy = DefaultPolicy()
	}
	ep.Policy = ep.Policy.withDefaults()
	if ep.Kind == "" {
		ep.Kind = KindDuplex
	}
	ep.Header = ep.Header.Clone()

	c := &Client{
		ep:          ep,
		transport:   t,
		clock:       clock.New(),
		logger:      log.NewNopLogger(),
		id:          uuid.NewString(),
		maxInFlight: DefaultMaxInFlight,
		q:           newQueue(),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.decode == nil {
		if ep.Kind == KindServerPush {
			c.decode = DecodeEvent
		} else {
			c.decode = DecodeEnvelope
		}
	}
	c.inflight = make(chan struct{}, c.maxInFlight)
	c.logger = c.logger.With(log.Component("stream"), log.Str("client_id", c.id), log.Str("endpoint", ep.Label()))
	return c
}

// Connect starts a connection run in the background. It is a no-op while
// connecting, open or reconnecting, and after Close. From Idle, or from Closed
// after the retry budget ran out, it resets the retry counter and dials.
// Failures are reported through OnError, never returned.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.state != StateIdle && c.state != StateClosed {
		return
	}
	c.failures = 0
	c.failed = false
	c.transitionLocked(StateConnecting, StateChange{})
	c.dialLocked()
}

// Subscribe registers fn for every decoded message. It may be called in any
// state, including before Connect. fn must not modify the payload, which is
// shared between subscribers.
func (c *Client) Subscribe(fn func(InboundMessage)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	return c.messages.add(fn)
}

// SubscribeWhere registers fn for messages matching pred. A nil pred matches all.
func (c *Client) SubscribeWhere(pred func(InboundMessage) bool, fn func(InboundMessage)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	if pred == nil {
		return c.messages.add(fn)
	}
	return c.messages.add(func(m InboundMessage) {
		if pred(m) {
			fn(m)
		}
	})
}

// Unsubscribe is shorthand for s.Unsubscribe.
func (c *Client) Unsubscribe(s *Subscription) { s.Unsubscribe() }

// OnStateChange registers fn for every lifecycle transition.
func (c *Client) OnStateChange(fn func(StateChange)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	return c.changes.add(fn)
}

// OnError registers fn for decode, transport, subscriber panic and retry
// budget errors.
func (c *Client) OnError(fn func(error)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	return c.errs.add(fn)
}

// Send writes data on the open connection. Nothing is buffered: outside
// StateOpen it returns ErrNotConnected.
func (c *Client) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.ep.Kind == KindServerPush:
		c.mu.Unlock()
		return ErrSendUnsupported
	case c.state != StateOpen || c.conn == nil:
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	if err := conn.Send(ctx, data); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// SendMessage encodes an envelope and sends it.
func (c *Client) SendMessage(ctx context.Context, kind string, payload interface{}) error {
	data, err := EncodeEnvelope(kind, payload)
	if err != nil {
		return err
	}
	return c.Send(ctx, data)
}

// Close moves the client through Closing to Closed, cancels any pending
// reconnect and closes the live connection before returning. It is terminal
// and idempotent. Registrations are kept but receive no further messages.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.halted.Store(true)
	c.session++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	if c.state != StateClosed {
		c.transitionLocked(StateClosing, StateChange{})
		c.transitionLocked(StateClosed, StateChange{})
	}
	c.ensureDispatcherLocked()
	c.q.close()
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Debug("close connection", log.Err(err))
		}
	}
	c.logger.Info("client closed")
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the retry counter: consecutive failures since the last open.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Failed reports whether the last run ended because the retry budget ran out.
func (c *Client) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Endpoint returns the endpoint with defaults applied.
func (c *Client) Endpoint() Endpoint { return c.ep }

// ID returns the client instance id.
func (c *Client) ID() string { return c.id }

// Done is closed after Close once every queued notification was delivered.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) dialLocked() {
	c.session++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, c.session, c.failures+1)
}

func (c *Client) run(ctx context.Context, session uint64, attempt int) {
	c.logger.Debug("dialing", log.Int("attempt", attempt), log.Str("url", c.ep.URL))
	conn, err := c.transport.Dial(ctx, c.ep)
	if err != nil {
		c.disconnected(session, &TransportError{Op: "dial", Attempt: attempt, Err: err})
		return
	}
	if !c.opened(session, conn) {
		_ = conn.Close()
		return
	}
	for {
		select {
		case c.inflight <- struct{}{}:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
		f, err := conn.Recv(ctx)
		if err != nil {
			c.release()
			_ = conn.Close()
			c.disconnected(session, &TransportError{Op: "recv", Err: err})
			return
		}
		c.received(session, f)
	}
}

func (c *Client) opened(session uint64, conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.closed || c.state != StateConnecting {
		return false
	}
	c.conn = conn
	c.failures = 0
	c.transitionLocked(StateOpen, StateChange{})
	return true
}

func (c *Client) received(session uint64, f Frame) {
	now := c.clock.Now()
	msg, err := c.decode(f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.closed {
		c.release()
		return
	}
	if err != nil {
		c.release()
		c.logger.Warn("dropping undecodable frame", log.Err(err), log.Int("bytes", len(f.Data)))
		c.reportLocked(&DecodeError{Frame: f, Err: err})
		return
	}
	c.seq++
	msg.Seq = c.seq
	msg.ReceivedAt = now
	if msg.ID == "" {
		msg.ID = f.ID
	}
	c.enqueueLocked(notice{kind: noticeMessage, msg: msg})
}

// disconnected handles a failed dial or a dropped session.
func (c *Client) disconnected(session uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.closed {
		return
	}
	if c.state != StateConnecting && c.state != StateOpen {
		return
	}
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.failures++
	c.reportLocked(cause)

	if c.ep.Policy.exhausted(c.failures) {
		c.failed = true
		exhausted := &BudgetExhaustedError{Attempts: c.failures, Last: cause}
		c.transitionLocked(StateClosed, StateChange{Attempt: c.failures, Err: exhausted})
		c.reportLocked(exhausted)
		return
	}

	delay := c.ep.Policy.Delay(c.failures)
	s := c.session
	// Arm before publishing the transition so observers never see
	// Reconnecting without a pending timer.
	c.timer = c.clock.AfterFunc(delay, func() { c.retry(s) })
	c.transitionLocked(StateReconnecting, StateChange{Attempt: c.failures, Delay: delay, Err: cause})
}

func (c *Client) retry(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.closed || c.state != StateReconnecting {
		return
	}
	c.timer = nil
	c.transitionLocked(StateConnecting, StateChange{Attempt: c.failures})
	c.dialLocked()
}

func (c *Client) transitionLocked(to State, change StateChange) {
	change.From = c.state
	change.To = to
	c.state = to

	switch {
	case to == StateOpen:
		c.logger.Info("connection open")
	case to == StateReconnecting:
		c.logger.Warn("reconnect scheduled",
			log.Int("attempt", change.Attempt),
			log.Dur("delay", change.Delay),
			log.Err(change.Err))
	case to == StateClosed && c.failed:
		c.logger.Error("retry budget exhausted", log.Int("attempts", change.Attempt), log.Err(change.Err))
	default:
		c.logger.Debug("state change", log.Str("from", change.From.String()), log.Str("to", to.String()))
	}
	c.enqueueLocked(notice{kind: noticeState, change: change})
}

func (c *Client) reportLocked(err error) {
	c.enqueueLocked(notice{kind: noticeError, err: err})
}

func (c *Client) enqueueLocked(n notice) {
	c.ensureDispatcherLocked()
	c.q.push(n)
}

func (c *Client) ensureDispatcherLocked() {
	if c.started {
		return
	}
	c.started = true
	go c.dispatch()
}

func (c *Client) release() {
	select {
	case <-c.inflight:
	default:
	}
}

func (c *Client) dispatch() {
	defer close(c.done)
	for {
		n, ok := c.q.pop()
		if !ok {
			return
		}
		switch n.kind {
		case noticeMessage:
			c.deliver(n.msg)
			c.release()
		case noticeState:
			for _, e := range c.changes.snapshot() {
				if e.sub.Active() {
					fn := e.fn
					c.invoke(func() { fn(n.change) }, true)
				}
			}
		case noticeError:
			for _, e := range c.errs.snapshot() {
				if e.sub.Active() {
					fn := e.fn
					c.invoke(func() { fn(n.err) }, false)
				}
			}
		}
	}
}

func (c *Client) deliver(m InboundMessage) {
	for _, e := range c.messages.snapshot() {
		if c.halted.Load() {
			return
		}
		if !e.sub.Active() {
			continue
		}
		fn := e.fn
		c.invoke(func() { fn(m) }, true)
	}
}

// invoke runs a user callback, recovering panics. Panics from error
// callbacks are only logged.
func (c *Client) invoke(fn func(), report bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber panicked", log.Any("panic", r))
			if report {
				c.mu.Lock()
				c.reportLocked(&CallbackPanicError{Value: r})
				c.mu.Unlock()
			}
		}
	}()
	fn()
}
