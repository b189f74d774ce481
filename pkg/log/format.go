package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TextFormatter renders entries as a single human readable line:
//
//	2024-01-02T15:04:05.000Z INFO [stream] connection open attempt=0
type TextFormatter struct {
	// TimeFormat defaults to RFC3339 with milliseconds.
	TimeFormat string
	// DisableTimestamp drops the leading timestamp.
	DisableTimestamp bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if !f.DisableTimestamp {
		tf := f.TimeFormat
		if tf == "" {
			tf = "2006-01-02T15:04:05.000Z07:00"
		}
		buf.WriteString(entry.Timestamp.Format(tf))
		buf.WriteByte(' ')
	}
	buf.WriteString(entry.Level.String())
	for _, field := range entry.Fields {
		if field.Key == ComponentKey {
			fmt.Fprintf(&buf, " [%v]", field.Value)
			break
		}
	}
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)
	for _, field := range entry.Fields {
		if field.Key == ComponentKey {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		writeTextValue(&buf, field.Value)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeTextValue(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("<nil>")
	case string:
		if needsQuote(val) {
			fmt.Fprintf(buf, "%q", val)
			return
		}
		buf.WriteString(val)
	case time.Duration:
		buf.WriteString(val.String())
	case error:
		fmt.Fprintf(buf, "%q", val.Error())
	default:
		fmt.Fprintf(buf, "%v", val)
	}
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+3)
	for _, field := range entry.Fields {
		switch val := field.Value.(type) {
		case time.Duration:
			m[field.Key] = val.String()
		case error:
			m[field.Key] = val.Error()
		default:
			m[field.Key] = val
		}
	}
	m["ts"] = entry.Timestamp.UTC().Format(time.RFC3339Nano)
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("format log entry: %w", err)
	}
	return append(b, '\n'), nil
}
