package stream

import "context"

// Transport opens connections for a Client. Implementations live in the
// transports package.
type Transport interface {
	// Dial opens one session. ctx bounds the lifetime of the returned Conn,
	// not only the handshake.
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

// Conn is one live transport session.
//
// Recv is called from a single goroutine. Send may be called concurrently
// with Recv. Close must be idempotent and unblock a pending Recv. A Conn must
// release its socket before Recv reports an error.
type Conn interface {
	Recv(ctx context.Context) (Frame, error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ep Endpoint) (Conn, error)

func (f TransportFunc) Dial(ctx context.Context, ep Endpoint) (Conn, error) { return f(ctx, ep) }
