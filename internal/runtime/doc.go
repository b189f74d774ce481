// Package runtime wires config, transport, client, metrics and the optional
// recorder for a single endpoint. It exposes Open/Close and a basic health
// check used by the status server.
//
// Example:
//
//	cfg := config.Default()
//	cfg.URL = "wss://example.com/feed"
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Registerer: prometheus.NewRegistry()})
//	defer rt.Close()
//	rt.Client().Subscribe(func(m stream.InboundMessage) { fmt.Println(m.Kind) })
//	rt.Client().Connect()
package runtime
