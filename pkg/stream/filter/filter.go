// Package filter compiles CEL expressions into message predicates for
// stream.Client.SubscribeWhere.
//
// Variables available to expressions:
//
//	kind    string  message kind
//	id      string  transport event id
//	seq     int     client arrival sequence
//	ts_ms   int     receipt time in unix ms
//	size    int     payload size in bytes
//	text    string  raw payload
//	json    dyn     parsed payload (map/list/scalar)
//	now_ms  int     evaluation time in unix ms
//
// Example: kind == "telemetry" && json.cpu > 0.9
package filter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/rtstream/pkg/stream"
)

// Predicate reports whether a message matches.
type Predicate func(stream.InboundMessage) bool

// NowMs is the evaluation clock for now_ms.
var NowMs = func() int64 { return time.Now().UnixMilli() }

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("id", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		// Parsed JSON payload for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
}

// Compile parses and type-checks expr. An empty expression matches every
// message. The expression must evaluate to bool; an evaluation error at
// match time counts as no match.
func Compile(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return func(stream.InboundMessage) bool { return true }, nil
	}
	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("filter: parse: %w", iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, fmt.Errorf("filter: check: %w", iss2.Err())
	}
	if out := checked.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter: expression yields %s, want bool", out)
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("filter: program: %w", err)
	}

	return func(m stream.InboundMessage) bool {
		var jsonObj any
		_ = json.Unmarshal(m.Payload, &jsonObj)
		out, _, err := prog.Eval(map[string]any{
			"kind":   m.Kind,
			"id":     m.ID,
			"seq":    int64(m.Seq),
			"ts_ms":  m.ReceivedAt.UnixMilli(),
			"size":   int64(len(m.Payload)),
			"text":   string(m.Payload),
			"json":   jsonObj,
			"now_ms": NowMs(),
		})
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}
