package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/rtstream/internal/runtime"
	"github.com/rzbill/rtstream/pkg/log"
)

const shutdownTimeout = 5 * time.Second

// Server serves the health and metrics endpoints for one runtime.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	logger log.Logger
}

// New builds the status server. A nil gatherer leaves /metrics unmounted.
func New(rt *runtime.Runtime, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, logger: logger.WithComponent("status"), srv: &http.Server{
		Handler:           cors(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.logger.Info("status server listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResp struct {
	Status   string `json:"status"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
	Failed   bool   `json:"failed"`
	Endpoint string `json:"endpoint"`
	ClientID string `json:"client_id"`
	Recorded *int   `json:"recorded,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	c := s.rt.Client()
	resp := healthResp{
		Status:   "ok",
		State:    c.State().String(),
		Attempts: c.Attempts(),
		Failed:   c.Failed(),
		Endpoint: c.Endpoint().Label(),
		ClientID: c.ID(),
	}
	if rec := s.rt.Recorder(); rec != nil {
		n := rec.Count()
		resp.Recorded = &n
	}
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		resp.Status = "not_serving"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSONStatus(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, map[string]string{"error": message})
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
