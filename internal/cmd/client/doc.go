// Package client provides the `rtstream` command-line client.
//
// The CLI connects to a streaming endpoint with the reconnecting stream
// client and prints, sends or replays messages from a terminal. It is
// primarily intended for developers and operators debugging live feeds.
//
// Installation
//
//	go install github.com/rzbill/rtstream/cmd/rtstream@latest
//
// # Endpoint configuration
//
// Every connecting command resolves its settings in this order: built-in
// defaults, --config file (JSON or YAML), RTSTREAM_* environment variables
// (optionally loaded from --env-file), then explicit flags. The endpoint
// kind is inferred from the URL scheme unless --kind is given: ws/wss are
// duplex, http/https (SSE) and grpc/grpcs are server-push.
//
// Usage
//
//	rtstream tail --url wss://example.com/feed --limit 10
//
//	# Only high CPU telemetry, with health and metrics on :9090
//	rtstream tail --url https://example.com/events \
//	    --filter 'kind == "telemetry" && json.cpu > 0.9' \
//	    --status-addr :9090
//
//	# Give up after 5 consecutive failures
//	rtstream tail --url ws://localhost:8080/ws \
//	    --max-attempts 5 --base-delay 200ms --max-delay 5s --multiplier 2
//
//	# Record while tailing, replay later
//	rtstream tail --url wss://example.com/feed --record-dir ./records
//	rtstream replay --dir ./records --limit 100
//
//	# Send an envelope {"kind":"chat","payload":{"text":"hi"}}
//	rtstream send --url ws://localhost:8080/ws --event-kind chat --data '{"text":"hi"}'
//	# or one message per stdin line, sent as is
//	cat messages.jsonl | rtstream send --url ws://localhost:8080/ws
//
// Notes
//
//   - tail prints one JSON object per message with seq, kind, id,
//     received_at and payload. It exits after --limit messages, on
//     interrupt, or with an error once the retry budget is exhausted.
//   - send only works on duplex endpoints and fails fast otherwise.
//   - --record journals every received message, before --filter applies.
package client
