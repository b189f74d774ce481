package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Decoder turns a transport frame into a message. Kind and Payload must be
// set; the client fills ReceivedAt and Seq.
type Decoder func(Frame) (InboundMessage, error)

// DefaultEventKind is used by DecodeEvent for frames without an event name.
const DefaultEventKind = "message"

var errMissingKind = errors.New("missing kind")

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEnvelope parses {"kind": "...", "payload": ...}. It is the default for
// duplex endpoints. A missing payload decodes as JSON null.
func DecodeEnvelope(f Frame) (InboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return InboundMessage{}, err
	}
	if env.Kind == "" {
		return InboundMessage{}, errMissingKind
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return InboundMessage{Kind: env.Kind, Payload: payload, ID: f.ID}, nil
}

// DecodeEvent is the default for server-push endpoints. The data must be JSON.
// An object carrying both "kind" and "payload" is treated as an envelope;
// anything else is delivered whole with the event name as kind.
func DecodeEvent(f Frame) (InboundMessage, error) {
	data := bytes.TrimSpace(f.Data)
	if !json.Valid(data) {
		return InboundMessage{}, fmt.Errorf("invalid JSON data")
	}
	if len(data) > 0 && data[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && env.Kind != "" && len(env.Payload) > 0 {
			return InboundMessage{Kind: env.Kind, Payload: env.Payload, ID: f.ID}, nil
		}
	}
	kind := f.Event
	if kind == "" {
		kind = DefaultEventKind
	}
	payload := make(json.RawMessage, len(data))
	copy(payload, data)
	return InboundMessage{Kind: kind, Payload: payload, ID: f.ID}, nil
}

// EncodeEnvelope builds the outbound {"kind","payload"} form used by SendMessage.
// A json.RawMessage or []byte payload is embedded as is and must be valid JSON.
func EncodeEnvelope(kind string, payload interface{}) ([]byte, error) {
	if kind == "" {
		return nil, errMissingKind
	}
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("encode payload: invalid JSON")
	}
	return json.Marshal(envelope{Kind: kind, Payload: raw})
}
