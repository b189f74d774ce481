// Package transports provides stream.Transport implementations.
//
//   - WebSocket (ws, wss): duplex, gorilla/websocket, ping/pong keepalive.
//   - SSE (http, https): server push over text/event-stream with Last-Event-ID resume.
//   - GRPC (grpc, grpcs): server push over a server-streaming RPC whose request
//     is google.protobuf.Empty and whose responses are google.protobuf.BytesValue.
//
// ForEndpoint picks one from the endpoint URL scheme.
package transports
