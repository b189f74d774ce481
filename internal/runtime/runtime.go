package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/rtstream/internal/config"
	"github.com/rzbill/rtstream/internal/metrics"
	"github.com/rzbill/rtstream/internal/recorder"
	pebblestore "github.com/rzbill/rtstream/internal/storage/pebble"
	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
	"github.com/rzbill/rtstream/pkg/stream/transports"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger log.Logger
	// Registerer receives the client and recorder metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Transport overrides the transport picked from the URL scheme.
	Transport stream.Transport
	// Record journals every delivered message to Config.RecordDir.
	Record bool
	Clock  clock.Clock
}

// Runtime wires config, transport, client, metrics and recorder for one
// endpoint.
type Runtime struct {
	config   cfgpkg.Config
	client   *stream.Client
	metrics  *metrics.Metrics
	recorder *recorder.Recorder
	logger   log.Logger
	detach   []func()
}

// Open builds the client and its collaborators. It does not connect.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg := opts.Config
	ep := cfg.Endpoint()
	if ep.Kind == "" {
		kind, err := transports.InferKind(ep.URL)
		if err != nil {
			return nil, err
		}
		ep.Kind = kind
	}

	tr := opts.Transport
	if tr == nil {
		var err error
		tr, err = transports.ForEndpoint(ep, transportOptions(cfg))
		if err != nil {
			return nil, err
		}
	}

	clientOpts := []stream.Option{stream.WithLogger(logger)}
	if cfg.MaxInFlight > 0 {
		clientOpts = append(clientOpts, stream.WithMaxInFlight(cfg.MaxInFlight))
	}
	if opts.Clock != nil {
		clientOpts = append(clientOpts, stream.WithClock(opts.Clock))
	}

	rt := &Runtime{config: cfg, logger: logger.WithComponent("runtime")}
	rt.client = stream.New(ep, tr, clientOpts...)
	if opts.Registerer != nil {
		rt.metrics = metrics.New(opts.Registerer)
		rt.detach = append(rt.detach, rt.metrics.Instrument(rt.client))
	}

	if opts.Record {
		if err := rt.openRecorder(cfg, logger, opts.Clock); err != nil {
			rt.client.Close()
			return nil, err
		}
	}
	return rt, nil
}

func transportOptions(cfg cfgpkg.Config) transports.Options {
	return transports.Options{
		WebSocket: transports.WebSocketOptions{
			PingInterval: time.Duration(cfg.PingIntervalMs) * time.Millisecond,
			PongWait:     time.Duration(cfg.PongWaitMs) * time.Millisecond,
		},
	}
}

func (r *Runtime) openRecorder(cfg cfgpkg.Config, logger log.Logger, clk clock.Clock) error {
	fsync := pebblestore.FsyncModeInterval
	if cfg.RecordFsync != "" {
		mode, err := pebblestore.ParseFsyncMode(cfg.RecordFsync)
		if err != nil {
			return err
		}
		fsync = mode
	}
	ropts := recorder.Options{Dir: cfg.RecordDir, Fsync: fsync, Logger: logger, Clock: clk}
	if r.metrics != nil {
		ropts.Metrics = r.metrics.StorageHook()
	}
	rec, err := recorder.Open(ropts)
	if err != nil {
		return fmt.Errorf("open recorder: %w", err)
	}
	r.recorder = rec

	label := r.client.Endpoint().Label()
	sub := r.client.Subscribe(func(msg stream.InboundMessage) {
		if _, err := rec.Append(label, msg); err != nil {
			r.logger.Error("record message", log.Err(err), log.Uint64("seq", msg.Seq))
		}
	})
	r.detach = append(r.detach, sub.Unsubscribe)
	return nil
}

// Close closes the client, waits for queued callbacks to finish and then
// closes the recorder.
func (r *Runtime) Close() error {
	r.client.Close()
	<-r.client.Done()
	for _, fn := range r.detach {
		fn()
	}
	if r.recorder == nil {
		return nil
	}
	return r.recorder.Close()
}

// CheckHealth reports nil while the connection is open.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch st := r.client.State(); st {
	case stream.StateOpen:
		return nil
	case stream.StateClosed:
		if r.client.Failed() {
			return stream.ErrRetryBudgetExhausted
		}
		return stream.ErrClosed
	default:
		return errors.New("stream " + st.String())
	}
}

// Client returns the stream client.
func (r *Runtime) Client() *stream.Client { return r.client }

// Recorder returns the journal, or nil when recording is off.
func (r *Runtime) Recorder() *recorder.Recorder { return r.recorder }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
