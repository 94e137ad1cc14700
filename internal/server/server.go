// Package server exposes tables over HTTP and websockets.
//
// Each registered table gets a TableRunner goroutine. GET /tables and
// GET /tables/{id} return public projections; /ws upgrades to a session that
// can watch a table or take a human seat.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/registry"
)

// Server owns the runners for every registered table.
type Server struct {
	logger    zerolog.Logger
	registry  *registry.Registry
	clock     quartz.Clock
	timeout   time.Duration
	aiDelay   time.Duration
	validator *Validator
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	runners map[string]*TableRunner
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerClock sets the clock handed to every runner.
func WithServerClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithTimeouts sets the human turn timeout and the computer action delay.
func WithTimeouts(turn, aiDelay time.Duration) Option {
	return func(s *Server) {
		s.timeout = turn
		s.aiDelay = aiDelay
	}
}

// New creates a server with a runner for each table in reg.
func New(reg *registry.Registry, opts ...Option) (*Server, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:    zerolog.Nop(),
		registry:  reg,
		clock:     quartz.NewReal(),
		timeout:   30 * time.Second,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		runners: make(map[string]*TableRunner),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()

	for _, e := range reg.Entries() {
		s.addRunner(e)
	}
	return s, nil
}

func (s *Server) addRunner(e *registry.Entry) *TableRunner {
	r := NewTableRunner(e.Table,
		WithClock(s.clock),
		WithTurnTimeout(s.timeout),
		WithAIDelay(s.aiDelay),
		WithRunnerLogger(s.logger),
	)
	s.mu.Lock()
	s.runners[e.ID] = r
	s.mu.Unlock()
	return r
}

// Runner finds the runner for a table id or label.
func (s *Server) Runner(key string) (*TableRunner, error) {
	e, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runners[e.ID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return r, nil
}

// RunTables runs every table until ctx is done. A table that breaks stops
// only itself.
func (s *Server) RunTables(ctx context.Context) error {
	s.mu.RLock()
	runners := make(map[string]*TableRunner, len(s.runners))
	for id, r := range s.runners {
		runners[id] = r
	}
	s.mu.RUnlock()

	var g errgroup.Group
	for id, r := range runners {
		g.Go(func() error {
			if err := r.Run(ctx); err != nil {
				s.logger.Error().Err(err).Str("table_id", id).Msg("Table stopped")
			}
			return nil
		})
	}
	return g.Wait()
}

// ListenAndServe serves HTTP on addr and runs the tables until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.RunTables(ctx)
	})
	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tables", s.handleTables)
	mux.HandleFunc("GET /tables/{id}", s.handleTable)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// TableDetail is the response for a single table.
type TableDetail struct {
	registry.Summary
	State game.TableView `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	e, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorData{Code: "not_found", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TableDetail{Summary: e.Summary(), State: e.Table.Projection()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	session := newSession(conn, s)
	s.logger.Debug().Str("session_id", session.id).Str("remote", r.RemoteAddr).Msg("Session opened")
	go session.writePump()
	go session.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
