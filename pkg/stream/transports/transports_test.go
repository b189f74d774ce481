package transports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/rtstream/pkg/stream"
)

func TestInferKind(t *testing.T) {
	cases := map[string]stream.Kind{
		"ws://h/feed":               stream.KindDuplex,
		"wss://h/feed":              stream.KindDuplex,
		"http://h/events":           stream.KindServerPush,
		"https://h/events":          stream.KindServerPush,
		"grpc://h:1/pkg.Feed/Watch": stream.KindServerPush,
	}
	for u, want := range cases {
		got, err := InferKind(u)
		require.NoError(t, err, u)
		require.Equal(t, want, got, u)
	}
	_, err := InferKind("ftp://h")
	require.Error(t, err)
}

func TestForEndpoint(t *testing.T) {
	tr, err := ForEndpoint(stream.Endpoint{URL: "wss://h/feed"}, Options{})
	require.NoError(t, err)
	require.IsType(t, &WebSocket{}, tr)

	tr, err = ForEndpoint(stream.Endpoint{URL: "https://h/events", Kind: stream.KindServerPush}, Options{})
	require.NoError(t, err)
	require.IsType(t, &SSE{}, tr)

	tr, err = ForEndpoint(stream.Endpoint{URL: "grpc://h:1/pkg.Feed/Watch"}, Options{})
	require.NoError(t, err)
	require.IsType(t, &GRPC{}, tr)

	_, err = ForEndpoint(stream.Endpoint{URL: "https://h/events", Kind: stream.KindDuplex}, Options{})
	require.Error(t, err)
}

func TestParseGRPCURL(t *testing.T) {
	target, method, secure, err := parseGRPCURL("grpcs://feed.example:443/demo.v1.Feed/Watch")
	require.NoError(t, err)
	require.Equal(t, "passthrough:///feed.example:443", target)
	require.Equal(t, "/demo.v1.Feed/Watch", method)
	require.True(t, secure)

	for _, bad := range []string{"grpc://h:1/onlyservice", "grpc:///a/b", "http://h/a/b"} {
		_, _, _, err := parseGRPCURL(bad)
		require.Error(t, err, bad)
	}
}
