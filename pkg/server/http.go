// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/mcpgateway/pkg/config"
	"github.com/kadirpekel/mcpgateway/pkg/gateway"
	"github.com/kadirpekel/mcpgateway/pkg/httpclient"
	"github.com/kadirpekel/mcpgateway/pkg/observability"
	"github.com/kadirpekel/mcpgateway/pkg/task"
	"github.com/kadirpekel/mcpgateway/pkg/transport"
)

// Well-known paths served by the gateway.
const (
	PathRPC           = "/"
	PathAgentCard     = "/.well-known/agent.json"
	PathAgentCardV2   = "/.well-known/agent-card.json"
	PathCommandSchema = "/schema/command.json"
	PathHealth        = "/health"
	readHeaderTimeout = 10 * time.Second
)

// HTTPServer serves the A2A JSON-RPC endpoint and its companions.
type HTTPServer struct {
	cfg *config.Config

	store     task.Store
	ownsStore bool
	pool      *config.DBPool

	tracer   *observability.Tracer
	metrics  *observability.Metrics
	execOpts []gateway.ExecutorOption

	card    *a2a.AgentCard
	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   sync.Once
}

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(*HTTPServer)

// WithTaskStore uses store instead of the one selected by the task_store
// configuration. The caller keeps ownership of store.
func WithTaskStore(store task.Store) HTTPServerOption {
	return func(s *HTTPServer) {
		s.store = store
	}
}

// WithObservability enables tracing and metrics. Either may be nil.
func WithObservability(tracer *observability.Tracer, metrics *observability.Metrics) HTTPServerOption {
	return func(s *HTTPServer) {
		s.tracer = tracer
		s.metrics = metrics
	}
}

// WithExecutorOptions appends options to the ones derived from the gateway
// configuration. Later options win.
func WithExecutorOptions(opts ...gateway.ExecutorOption) HTTPServerOption {
	return func(s *HTTPServer) {
		s.execOpts = append(s.execOpts, opts...)
	}
}

// NewHTTPServer builds the task store, executor, coordinator and router
// described by cfg.
func NewHTTPServer(ctx context.Context, cfg *config.Config, opts ...HTTPServerOption) (*HTTPServer, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &HTTPServer{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.pool = config.NewDBPool()
		store, err := task.NewStoreFromConfig(ctx, &cfg.TaskStore, s.pool)
		if err != nil {
			_ = s.pool.Close()
			return nil, fmt.Errorf("failed to create task store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	service, err := s.buildCoordinator()
	if err != nil {
		s.closeResources()
		return nil, err
	}

	s.card = BuildAgentCard(&cfg.Server)
	s.handler = s.setupRoutes(transport.NewJSONRPCHandler(service))

	return s, nil
}

func (s *HTTPServer) buildCoordinator() (*gateway.Coordinator, error) {
	gw := s.cfg.Gateway

	client, err := httpclient.New(
		httpclient.WithTimeout(gw.Timeout),
		httpclient.WithMaxResponseBytes(gw.MaxResponseBytes),
		httpclient.WithTLSConfig(&httpclient.TLSConfig{
			InsecureSkipVerify: gw.TLS.InsecureSkipVerify,
			CACertificate:      gw.TLS.CACertificate,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	execOpts := []gateway.ExecutorOption{
		gateway.WithClient(client),
		gateway.WithCallTimeout(gw.Timeout),
		gateway.WithDefaultPath(gw.DefaultPath),
	}
	if s.metrics != nil {
		execOpts = append(execOpts, gateway.WithCallRecorder(s.metrics))
	}
	executor, err := gateway.NewExecutor(append(execOpts, s.execOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	var coordOpts []gateway.CoordinatorOption
	if s.metrics != nil {
		coordOpts = append(coordOpts, gateway.WithTaskRecorder(s.metrics))
	}
	return gateway.NewCoordinator(s.store, executor, coordOpts...)
}

// setupRoutes mounts the endpoints and the middleware chain
// (observability -> request id -> logging -> cors -> routes).
func (s *HTTPServer) setupRoutes(rpc http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(observability.HTTPMiddleware(s.tracer, s.metrics))
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(s.cfg.Server.CORSOrigins))

	// The JSON-RPC handler answers non-POST methods itself.
	r.Handle(PathRPC, rpc)

	cardHandler := a2asrv.NewStaticAgentCardHandler(s.card)
	r.Get(PathAgentCard, cardHandler.ServeHTTP)
	r.Get(PathAgentCardV2, cardHandler.ServeHTTP)
	r.Get(PathCommandSchema, handleCommandSchema)
	r.Get(PathHealth, handleHealth)

	if s.metrics != nil {
		r.Method(http.MethodGet, s.metrics.Endpoint(), s.metrics.Handler())
	}

	return r
}

// Handler returns the root handler including middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// AgentCard returns the advertised agent card.
func (s *HTTPServer) AgentCard() *a2a.AgentCard {
	return s.card
}

// Start listens on the configured address and serves until ctx is done or
// the server fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address(), err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	slog.Info("HTTP server starting", "address", ln.Addr().String(), "url", s.card.URL)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// configured shutdown timeout and releases the task store.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv != nil {
		slog.Info("HTTP server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.closeResources(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *HTTPServer) closeResources() error {
	var errs []error
	s.closed.Do(func() {
		if s.ownsStore && s.store != nil {
			if err := s.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("task store: %w", err))
			}
		}
		if s.pool != nil {
			if err := s.pool.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database pool: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

// Address returns the bound address once started, the configured one
// before.
func (s *HTTPServer) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Server.Address()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleCommandSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(gateway.CommandSchema()); err != nil {
		slog.Error("Failed to encode command schema", "error", err)
	}
}
