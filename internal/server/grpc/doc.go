// Package grpcserver exposes the standard gRPC health service for a running
// stream client so orchestrators can probe it with grpc_health_probe.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":9091")
package grpcserver
