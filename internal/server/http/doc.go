// Package httpserver exposes the status surface of a running stream client:
// a JSON health endpoint and Prometheus metrics.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Registerer: reg})
//	s := httpserver.New(rt, reg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":9090")
package httpserver
