package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rzbill/rtstream/internal/runtime"
	grpcserver "github.com/rzbill/rtstream/internal/server/grpc"
	httpserver "github.com/rzbill/rtstream/internal/server/http"
	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
	"github.com/rzbill/rtstream/pkg/stream/filter"
)

// newTailCommand constructs the `tail` command.
func newTailCommand() *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print every message from an endpoint as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			expr, _ := cmd.Flags().GetString("filter")
			record, _ := cmd.Flags().GetBool("record")
			if cmd.Flags().Changed("record-dir") {
				cfg.RecordDir, _ = cmd.Flags().GetString("record-dir")
				record = true
			}
			if cmd.Flags().Changed("status-addr") {
				cfg.StatusAddr, _ = cmd.Flags().GetString("status-addr")
			}

			pred, err := filter.Compile(expr)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg.Log)
			if err != nil {
				return err
			}

			var reg *prometheus.Registry
			opts := runtime.Options{Config: cfg, Logger: logger, Record: record}
			if cfg.StatusAddr != "" {
				reg = prometheus.NewRegistry()
				opts.Registerer = reg
			}
			rt, err := runtime.Open(opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if cfg.StatusAddr != "" {
				srv := httpserver.New(rt, reg, logger)
				go func() {
					if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
						logger.Error("status server", log.Err(err))
					}
				}()
			}

			if addr, _ := cmd.Flags().GetString("grpc-health-addr"); addr != "" {
				hs := grpcserver.New(rt, logger)
				go func() {
					if err := hs.ListenAndServe(ctx, addr); err != nil {
						logger.Error("grpc health server", log.Err(err))
					}
				}()
			}

			out := newLineWriter(cmd.OutOrStdout())
			reached := make(chan struct{})
			var once sync.Once
			printed := 0
			rt.Client().SubscribeWhere(pred, func(m stream.InboundMessage) {
				if limit > 0 && printed >= limit {
					return
				}
				if err := out.write(newMessageLine(m)); err != nil {
					logger.Error("write message", log.Err(err))
				}
				printed++
				if limit > 0 && printed == limit {
					once.Do(func() { close(reached) })
				}
			})
			failed := make(chan error, 1)
			rt.Client().OnStateChange(func(ch stream.StateChange) {
				if ch.To == stream.StateClosed && ch.Err != nil {
					select {
					case failed <- ch.Err:
					default:
					}
				}
			})
			rt.Client().Connect()

			select {
			case <-ctx.Done():
				return nil
			case <-reached:
				return nil
			case err := <-failed:
				return fmt.Errorf("tail %s: %w", rt.Client().Endpoint().Label(), err)
			}
		},
	}
	addEndpointFlags(tailCmd.Flags())
	tailCmd.Flags().String("filter", "", "CEL filter over kind, id, seq, ts_ms, size, text, json, now_ms")
	tailCmd.Flags().Int("limit", 0, "Stop after N messages (0 = infinite)")
	tailCmd.Flags().Bool("record", false, "Journal every received message to the record dir")
	tailCmd.Flags().String("record-dir", "", "Record directory (implies --record)")
	tailCmd.Flags().String("status-addr", "", "Serve /v1/healthz and /metrics on this address")
	tailCmd.Flags().String("grpc-health-addr", "", "Serve grpc.health.v1 on this address")
	return tailCmd
}
