package transports

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rzbill/rtstream/pkg/stream"
)

func startFeedServer(t *testing.T, frames []string) (*GRPC, *atomic.Value) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	var token atomic.Value
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, ss grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(ss)
		if method != "/demo.v1.Feed/Watch" {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		var req emptypb.Empty
		if err := ss.RecvMsg(&req); err != nil {
			return err
		}
		if md, ok := metadata.FromIncomingContext(ss.Context()); ok && len(md.Get("x-token")) > 0 {
			token.Store(md.Get("x-token")[0])
		}
		if err := ss.SendHeader(metadata.MD{}); err != nil {
			return err
		}
		for _, f := range frames {
			if err := ss.SendMsg(wrapperspb.Bytes([]byte(f))); err != nil {
				return err
			}
		}
		<-ss.Context().Done()
		return nil
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	return NewGRPC(GRPCOptions{DialOptions: []grpc.DialOption{dialer}}), &token
}

func TestGRPCServerStream(t *testing.T) {
	tr, token := startFeedServer(t, []string{
		`{"kind":"price","payload":{"sym":"X","px":1.5}}`,
		`{"px":2}`,
	})
	ep := stream.Endpoint{
		URL:    "grpc://bufnet/demo.v1.Feed/Watch",
		Kind:   stream.KindServerPush,
		Policy: fastPolicy(3),
		Header: map[string][]string{"X-Token": {"abc"}},
	}
	c := stream.New(ep, tr)
	defer c.Close()
	out := collect(c)
	c.Connect()

	require.Eventually(t, func() bool { return len(out.messages()) == 2 }, waitFor, 10*time.Millisecond)
	msgs := out.messages()
	require.Equal(t, "price", msgs[0].Kind)
	require.Equal(t, stream.DefaultEventKind, msgs[1].Kind)
	require.JSONEq(t, `{"px":2}`, string(msgs[1].Payload))
	require.Equal(t, "abc", token.Load())
	require.ErrorIs(t, c.Send(context.Background(), []byte("x")), stream.ErrSendUnsupported)
}

func TestGRPCUnknownMethodIsDialError(t *testing.T) {
	tr, _ := startFeedServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := tr.Dial(ctx, stream.Endpoint{URL: "grpc://bufnet/demo.v1.Feed/Nope"})
	require.ErrorContains(t, err, "Unimplemented")
}

func TestGRPCCloseEndsStream(t *testing.T) {
	tr, _ := startFeedServer(t, nil)
	conn, err := tr.Dial(context.Background(), stream.Endpoint{URL: "grpc://bufnet/demo.v1.Feed/Watch"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Recv(context.Background())
		done <- err
	}()
	require.NoError(t, conn.Close())
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(waitFor):
		t.Fatal("Close did not unblock Recv")
	}
}
