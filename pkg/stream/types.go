package stream

import (
	"encoding/json"
	"net/http"
	"time"
)

// State is the connection lifecycle state of a Client.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Kind tells whether the endpoint accepts outbound messages.
type Kind string

const (
	KindDuplex     Kind = "duplex"
	KindServerPush Kind = "server-push"
)

// Endpoint describes where and how to connect. Treat it as immutable once
// handed to New.
type Endpoint struct {
	URL    string
	Kind   Kind
	Policy Policy
	// Header is sent with the dial request when the transport supports it.
	Header http.Header
	// Name labels logs and metrics. Defaults to URL.
	Name string
}

// Label returns Name, or URL when no name was set.
func (e Endpoint) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.URL
}

// InboundMessage is a decoded frame delivered to subscribers.
type InboundMessage struct {
	Kind       string
	Payload    json.RawMessage
	ReceivedAt time.Time
	// ID is the transport event id (SSE "id:"), empty when the transport has none.
	ID string
	// Seq increases by one for every message the client delivers.
	Seq uint64
}

// StateChange describes one lifecycle transition.
type StateChange struct {
	From    State
	To      State
	Attempt int
	// Delay is the backoff before the next dial; set when To is StateReconnecting.
	Delay time.Duration
	// Err is the disconnect cause for StateReconnecting or a terminal failure.
	Err error
}

// Frame is a raw transport unit before decoding.
type Frame struct {
	Event string
	ID    string
	Data  []byte
}
