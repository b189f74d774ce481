package transports

import (
	"fmt"
	"net/url"

	"github.com/rzbill/rtstream/pkg/stream"
)

// Options carries per-transport settings for ForEndpoint.
type Options struct {
	WebSocket WebSocketOptions
	SSE       SSEOptions
	GRPC      GRPCOptions
}

// InferKind maps a URL scheme to the endpoint kind it implies.
func InferKind(rawURL string) (stream.Kind, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return stream.KindDuplex, nil
	case "http", "https", "grpc", "grpcs":
		return stream.KindServerPush, nil
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

// ForEndpoint returns the transport for ep's URL scheme. It rejects a kind
// the transport cannot serve, such as a duplex http endpoint.
func ForEndpoint(ep stream.Endpoint, opts Options) (stream.Transport, error) {
	implied, err := InferKind(ep.URL)
	if err != nil {
		return nil, err
	}
	if ep.Kind == stream.KindDuplex && implied != stream.KindDuplex {
		return nil, fmt.Errorf("endpoint %q: scheme only supports %s", ep.URL, implied)
	}
	u, _ := url.Parse(ep.URL)
	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocket(opts.WebSocket), nil
	case "http", "https":
		return NewSSE(opts.SSE), nil
	default:
		return NewGRPC(opts.GRPC), nil
	}
}
