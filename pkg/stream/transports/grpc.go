package transports

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rzbill/rtstream/pkg/stream"
)

// GRPCOptions tunes the gRPC transport.
type GRPCOptions struct {
	// DialOptions are appended after the credentials chosen from the scheme.
	DialOptions []grpc.DialOption
	// TLS overrides the TLS config for grpcs URLs.
	TLS *tls.Config
}

// GRPC is a server-push stream.Transport over a server-streaming RPC.
//
// The URL names the target and the full method:
//
//	grpc://host:port/pkg.Service/Method
//
// The request is google.protobuf.Empty. Each google.protobuf.BytesValue
// response becomes one frame. Endpoint headers are sent as metadata.
type GRPC struct {
	opts GRPCOptions
}

// NewGRPC creates a gRPC transport.
func NewGRPC(opts GRPCOptions) *GRPC { return &GRPC{opts: opts} }

var watchDesc = &grpc.StreamDesc{StreamName: "Watch", ServerStreams: true}

func parseGRPCURL(raw string) (target, method string, secure bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, err
	}
	switch u.Scheme {
	case "grpc":
	case "grpcs":
		secure = true
	default:
		return "", "", false, fmt.Errorf("grpc: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", false, fmt.Errorf("grpc: missing host in %q", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false, fmt.Errorf("grpc: path must be /pkg.Service/Method, got %q", u.Path)
	}
	return "passthrough:///" + u.Host, "/" + parts[0] + "/" + parts[1], secure, nil
}

// Dial opens the stream and waits for response headers, so a handler that
// fails immediately surfaces as a dial error.
func (t *GRPC) Dial(ctx context.Context, ep stream.Endpoint) (stream.Conn, error) {
	target, method, secure, err := parseGRPCURL(ep.URL)
	if err != nil {
		return nil, err
	}
	creds := insecure.NewCredentials()
	if secure {
		cfg := t.opts.TLS
		if cfg == nil {
			cfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		creds = credentials.NewTLS(cfg)
	}
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, t.opts.DialOptions...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	if len(ep.Header) > 0 {
		md := metadata.MD{}
		for k, vs := range ep.Header {
			md.Append(strings.ToLower(k), vs...)
		}
		sctx = metadata.NewOutgoingContext(sctx, md)
	}
	fail := func(err error) (stream.Conn, error) {
		cancel()
		_ = cc.Close()
		return nil, err
	}

	st, err := cc.NewStream(sctx, watchDesc, method)
	if err != nil {
		return fail(fmt.Errorf("grpc open %s: %w", method, err))
	}
	if err := st.SendMsg(&emptypb.Empty{}); err != nil {
		return fail(fmt.Errorf("grpc send request: %w", err))
	}
	if err := st.CloseSend(); err != nil {
		return fail(fmt.Errorf("grpc close send: %w", err))
	}
	md, err := st.Header()
	if err != nil {
		return fail(fmt.Errorf("grpc header: %w", err))
	}
	if md == nil {
		// Trailers-only response: the handler finished without a message.
		var v wrapperspb.BytesValue
		if err := st.RecvMsg(&v); err != nil {
			return fail(fmt.Errorf("grpc stream: %w", err))
		}
		return fail(fmt.Errorf("grpc stream: ended before headers"))
	}
	return &grpcConn{cc: cc, st: st, cancel: cancel}, nil
}

type grpcConn struct {
	cc     *grpc.ClientConn
	st     grpc.ClientStream
	cancel context.CancelFunc
	once   sync.Once
}

func (c *grpcConn) Recv(context.Context) (stream.Frame, error) {
	var v wrapperspb.BytesValue
	if err := c.st.RecvMsg(&v); err != nil {
		return stream.Frame{}, err
	}
	return stream.Frame{Data: v.GetValue()}, nil
}

func (c *grpcConn) Send(context.Context, []byte) error { return stream.ErrSendUnsupported }

func (c *grpcConn) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.cc.Close()
	})
	return err
}
