package filter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rzbill/rtstream/pkg/stream"
)

func msg(kind, payload string) stream.InboundMessage {
	return stream.InboundMessage{
		Kind:       kind,
		Payload:    json.RawMessage(payload),
		ReceivedAt: time.UnixMilli(5000),
		ID:         "evt-1",
		Seq:        3,
	}
}

func TestCompileAndMatch(t *testing.T) {
	cases := []struct {
		expr string
		in   stream.InboundMessage
		want bool
	}{
		{"", msg("any", `1`), true},
		{`kind == "telemetry"`, msg("telemetry", `{}`), true},
		{`kind == "telemetry"`, msg("chat", `{}`), false},
		{`kind == "telemetry" && json.cpu > 0.9`, msg("telemetry", `{"cpu":0.95}`), true},
		{`kind == "telemetry" && json.cpu > 0.9`, msg("telemetry", `{"cpu":0.5}`), false},
		{`text.contains("urgent")`, msg("chat", `{"text":"urgent: pager"}`), true},
		{`size < 4`, msg("n", `12`), true},
		{`id == "evt-1" && seq == 3`, msg("n", `1`), true},
		{`ts_ms == 5000`, msg("n", `1`), true},
		{`now_ms > ts_ms`, msg("n", `1`), true},
		// missing field is an evaluation error, which never matches
		{`json.missing == 1.0`, msg("n", `{}`), false},
	}
	for _, tc := range cases {
		pred, err := Compile(tc.expr)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tc.expr, err)
		}
		if got := pred(tc.in); got != tc.want {
			t.Fatalf("%q on %s = %v, want %v", tc.expr, tc.in.Payload, got, tc.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, expr := range []string{`kind ==`, `unknown_var == 1`, `size + 1`} {
		if _, err := Compile(expr); err == nil {
			t.Fatalf("Compile(%q) succeeded, want error", expr)
		}
	}
}
