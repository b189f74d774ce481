package transports

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/rzbill/rtstream/pkg/stream"
)

// SSEOptions tunes the server-sent events transport.
type SSEOptions struct {
	// Client overrides the HTTP client. It must not set a total Timeout,
	// which would cut the stream.
	Client *http.Client
	// ResponseTimeout bounds the wait for response headers. Defaults to 30s.
	ResponseTimeout time.Duration
	// MaxEventSize bounds a single line. Defaults to DefaultMaxEventSize.
	MaxEventSize int
}

// SSE is a server-push stream.Transport over text/event-stream. It remembers
// the last event id across sessions and sends it as Last-Event-ID.
type SSE struct {
	opts   SSEOptions
	client *http.Client

	mu     sync.Mutex
	lastID string
}

// NewSSE creates an SSE transport.
func NewSSE(opts SSEOptions) *SSE {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: opts.ResponseTimeout,
			IdleConnTimeout:       90 * time.Second,
		}}
	}
	return &SSE{opts: opts, client: client}
}

// LastEventID returns the id that the next Dial will resume from.
func (t *SSE) LastEventID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastID
}

func (t *SSE) setLastEventID(id string) {
	t.mu.Lock()
	t.lastID = id
	t.mu.Unlock()
}

// Dial issues the GET and validates the response. ctx bounds the stream.
func (t *SSE) Dial(ctx context.Context, ep stream.Endpoint) (stream.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range ep.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := t.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sse request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse request: unexpected status %s", resp.Status)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mt != "text/event-stream" {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse request: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	scanner := NewEventScanner(resp.Body, t.opts.MaxEventSize)
	scanner.lastID = t.LastEventID()
	return &sseConn{t: t, body: resp.Body, scanner: scanner, cancel: cancel}, nil
}

type sseConn struct {
	t       *SSE
	body    io.ReadCloser
	scanner *EventScanner
	cancel  context.CancelFunc
	once    sync.Once
}

func (c *sseConn) Recv(context.Context) (stream.Frame, error) {
	if !c.scanner.Next() {
		err := c.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		return stream.Frame{}, err
	}
	ev := c.scanner.Event()
	c.t.setLastEventID(ev.ID)
	return stream.Frame{Event: ev.Type, ID: ev.ID, Data: []byte(ev.Data)}, nil
}

func (c *sseConn) Send(context.Context, []byte) error { return stream.ErrSendUnsupported }

func (c *sseConn) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.body.Close()
	})
	return err
}
