// Package metrics exposes Prometheus collectors for stream clients and the
// message recorder.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rzbill/rtstream/pkg/stream"
)

const namespace = "rtstream"

// Error type label values.
const (
	ErrorDecode    = "decode"
	ErrorTransport = "transport"
	ErrorBudget    = "budget"
	ErrorCallback  = "callback"
	ErrorOther     = "other"
)

// Metrics holds the client collectors.
type Metrics struct {
	messages       *prometheus.CounterVec
	errors         *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	state          *prometheus.GaugeVec
	reconnectDelay *prometheus.HistogramVec

	storageOps *prometheus.HistogramVec
	storageBytes *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages delivered to subscribers.",
		}, []string{"endpoint", "kind"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors reported by stream clients.",
		}, []string{"endpoint", "type"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Connection state transitions by target state.",
		}, []string{"endpoint", "to"}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 idle, 1 connecting, 2 open, 3 closing, 4 closed, 5 reconnecting).",
		}, []string{"endpoint"}),
		reconnectDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay scheduled before each reconnect.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		storageOps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "op_duration_seconds",
			Help:      "Recorder storage operation latency.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"op"}),
		storageBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "bytes_total",
			Help:      "Bytes moved through recorder storage.",
		}, []string{"op"}),
	}
}

// Instrument subscribes to c and records its activity. The returned function
// detaches the subscriptions.
func (m *Metrics) Instrument(c *stream.Client) func() {
	label := c.Endpoint().Label()
	m.state.WithLabelValues(label).Set(float64(c.State()))

	msgs := c.Subscribe(func(msg stream.InboundMessage) {
		m.messages.WithLabelValues(label, msg.Kind).Inc()
	})
	errs := c.OnError(func(err error) {
		m.errors.WithLabelValues(label, ErrorType(err)).Inc()
	})
	states := c.OnStateChange(func(ch stream.StateChange) {
		m.transitions.WithLabelValues(label, ch.To.String()).Inc()
		m.state.WithLabelValues(label).Set(float64(ch.To))
		if ch.To == stream.StateReconnecting {
			m.reconnectDelay.WithLabelValues(label).Observe(ch.Delay.Seconds())
		}
	})
	return func() {
		msgs.Unsubscribe()
		errs.Unsubscribe()
		states.Unsubscribe()
	}
}

// ErrorType maps an error reported by a client to its label value.
func ErrorType(err error) string {
	var (
		decodeErr    *stream.DecodeError
		transportErr *stream.TransportError
		panicErr     *stream.CallbackPanicError
	)
	switch {
	case errors.Is(err, stream.ErrRetryBudgetExhausted):
		return ErrorBudget
	case errors.As(err, &decodeErr):
		return ErrorDecode
	case errors.As(err, &panicErr):
		return ErrorCallback
	case errors.As(err, &transportErr):
		return ErrorTransport
	default:
		return ErrorOther
	}
}

// StorageHook returns a recorder storage hook backed by m.
func (m *Metrics) StorageHook() *StorageHook { return &StorageHook{m: m} }

// StorageHook implements the Pebble wrapper's MetricsHook.
type StorageHook struct{ m *Metrics }

func (h *StorageHook) ObserveWrite(d time.Duration, bytes int) { h.observe("write", d, bytes) }
func (h *StorageHook) ObserveRead(d time.Duration, bytes int)  { h.observe("read", d, bytes) }

func (h *StorageHook) observe(op string, d time.Duration, bytes int) {
	h.m.storageOps.WithLabelValues(op).Observe(d.Seconds())
	if bytes > 0 {
		h.m.storageBytes.WithLabelValues(op).Add(float64(bytes))
	}
}
