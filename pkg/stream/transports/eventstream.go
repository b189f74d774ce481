package transports

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxEventSize bounds a single event-stream line.
const DefaultMaxEventSize = 1 << 20

// Event is one dispatched text/event-stream event.
type Event struct {
	// Type is the "event:" field, empty for the default event type.
	Type string
	// ID is the last event id seen on the stream, including ids set by
	// earlier events.
	ID string
	// Data joins all "data:" lines with "\n".
	Data string
	// Retry is the last "retry:" value in milliseconds, or zero.
	Retry int
}

// EventScanner reads Server-Sent Events from an io.Reader.
//
//	s := NewEventScanner(body, 0)
//	for s.Next() {
//	    ev := s.Event()
//	}
//	if err := s.Err(); err != nil { ... }
//
// An event still being assembled when the stream ends is discarded.
type EventScanner struct {
	lines   *bufio.Scanner
	current Event
	lastID  string
	retry   int
	err     error
}

// NewEventScanner creates a scanner. maxLine <= 0 uses DefaultMaxEventSize.
func NewEventScanner(r io.Reader, maxLine int) *EventScanner {
	if maxLine <= 0 {
		maxLine = DefaultMaxEventSize
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	return &EventScanner{lines: s}
}

// Next advances to the next event. It returns false at end of stream or on error.
func (s *EventScanner) Next() bool {
	var data []string
	var eventType string
	hasData := false

	for s.lines.Scan() {
		line := strings.TrimSuffix(s.lines.Text(), "\r")
		if line == "" {
			if !hasData {
				eventType = ""
				continue
			}
			s.current = Event{Type: eventType, ID: s.lastID, Data: strings.Join(data, "\n"), Retry: s.retry}
			return true
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if ok {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			eventType = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				s.retry = ms
			}
		}
	}
	if err := s.lines.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = errors.New("event stream line exceeds size limit")
		}
		s.err = err
	}
	return false
}

// Event returns the event parsed by the last successful Next.
func (s *EventScanner) Event() Event { return s.current }

// LastEventID returns the id to send as Last-Event-ID on reconnect.
func (s *EventScanner) LastEventID() string { return s.lastID }

// Err returns the read error that stopped the scanner, nil on clean EOF.
func (s *EventScanner) Err() error { return s.err }
