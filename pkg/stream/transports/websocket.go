package transports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rzbill/rtstream/pkg/stream"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	defaultReadLimit = 1 << 20

	defaultHandshakeTimeout = 10 * time.Second

	// Time allowed for the close handshake frame on Close.
	closeGrace = 250 * time.Millisecond
)

// WebSocketOptions tunes the WebSocket transport. Zero values use defaults.
type WebSocketOptions struct {
	HandshakeTimeout time.Duration
	// PingInterval defaults to 9/10 of PongWait. Negative disables pings
	// and read deadlines.
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	ReadLimit    int64
	// Dialer overrides the gorilla dialer; HandshakeTimeout is then ignored.
	Dialer *websocket.Dialer
}

func (o WebSocketOptions) withDefaults() WebSocketOptions {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingInterval == 0 {
		o.PingInterval = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	return o
}

// WebSocket is a duplex stream.Transport.
type WebSocket struct {
	opts WebSocketOptions
}

// NewWebSocket creates a WebSocket transport.
func NewWebSocket(opts WebSocketOptions) *WebSocket {
	return &WebSocket{opts: opts.withDefaults()}
}

// Dial performs the opening handshake. The connection is closed when ctx ends.
func (t *WebSocket) Dial(ctx context.Context, ep stream.Endpoint) (stream.Conn, error) {
	dialer := t.opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: t.opts.HandshakeTimeout,
		}
	}
	conn, resp, err := dialer.DialContext(ctx, ep.URL, ep.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial websocket: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	c := &wsConn{conn: conn, opts: t.opts, done: make(chan struct{})}
	conn.SetReadLimit(t.opts.ReadLimit)
	if t.opts.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.opts.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(t.opts.PongWait))
		})
		go c.pingLoop()
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return c, nil
}

type wsConn struct {
	conn *websocket.Conn
	opts WebSocketOptions

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) Recv(context.Context) (stream.Frame, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return stream.Frame{}, err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		return stream.Frame{Data: data}, nil
	}
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	deadline := time.Now().Add(c.opts.WriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Close sends a normal close frame and releases the socket.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		err = c.conn.Close()
	})
	return err
}
