// Package devserver exposes a state container for development: the
// current state as JSON, a live change feed over WebSocket, Prometheus
// metrics, and a health endpoint.
//
// The server registers its own listeners directly on the store (which
// must be safe for concurrent Subscribe, as pkg/store is), never on the
// subscription tree: the tree is single-threaded and owned by the
// dispatch goroutine, while connections come and go on their own
// goroutines.
//
// Intended for development; there is no authentication.
package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cascade-dev/cascade/pkg/cascade"
)

// Config configures the dev server.
type Config struct {
	// Addr is the listen address (default: "localhost:6363").
	Addr string

	// Logger receives server logs (default: slog.Default with a
	// component attribute).
	Logger *slog.Logger

	// WriteTimeout bounds each WebSocket write (default: 10s).
	WriteTimeout time.Duration

	// MetricsHandler serves GET /metrics (default: promhttp.Handler).
	MetricsHandler http.Handler
}

// Server serves the inspection endpoints for one store.
type Server struct {
	store      cascade.Store
	config     Config
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
	seq        atomic.Uint64
}

// New creates a dev server for store. Zero-value config fields take
// their defaults.
func New(store cascade.Store, config Config) *Server {
	if config.Addr == "" {
		config.Addr = "localhost:6363"
	}
	if config.Logger == nil {
		config.Logger = slog.Default().With("component", "devserver")
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.MetricsHandler == nil {
		config.MetricsHandler = promhttp.Handler()
	}

	return &Server{
		store:  store,
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dev tool: accept any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the route tree, for mounting under another router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/state", s.handleState)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", s.config.MetricsHandler)
	return r
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Handler(),
	}

	s.logger.Info("dev server listening", "addr", s.config.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.GetState()); err != nil {
		s.logger.Error("state encode error", "error", err)
	}
}

// changeEvent is one frame on the live feed.
type changeEvent struct {
	Seq   uint64 `json:"seq"`
	State any    `json:"state"`
}

// handleWS upgrades the connection and streams one JSON event per state
// change. Changes are edge-coalesced per connection: a slow client sees
// the latest state, not every intermediate one.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	notify := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// Reader goroutine: drain client frames and signal close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial snapshot so the client has a baseline.
	if err := s.writeEvent(conn); err != nil {
		return
	}

	for {
		select {
		case <-notify:
			if err := s.writeEvent(conn); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logger.Error("write error", "error", err)
				}
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return conn.WriteJSON(changeEvent{
		Seq:   s.seq.Add(1),
		State: s.store.GetState(),
	})
}
