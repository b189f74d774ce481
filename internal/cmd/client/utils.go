package client

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rzbill/rtstream/pkg/stream"
)

// messageLine is the JSON shape printed for every message.
type messageLine struct {
	Seq        uint64          `json:"seq"`
	Kind       string          `json:"kind"`
	ID         string          `json:"id,omitempty"`
	ReceivedAt string          `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
	// Set by replay only.
	Key      string `json:"key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

func newMessageLine(m stream.InboundMessage) messageLine {
	payload := m.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return messageLine{
		Seq:        m.Seq,
		Kind:       m.Kind,
		ID:         m.ID,
		ReceivedAt: m.ReceivedAt.UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
}

// lineWriter writes one JSON document per line.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w)}
}

func (lw *lineWriter) write(v any) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.enc.Encode(v)
}
