// Package server exposes the router over TCP listeners and a websocket
// endpoint, and serves /health and /stats.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/bigtwo/internal/fileutil"
	"github.com/lox/bigtwo/internal/game"
	"github.com/lox/bigtwo/internal/protocol"
	"github.com/lox/bigtwo/internal/router"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const shutdownTimeout = 5 * time.Second

// Server owns the listeners and bounds how many requests run at once.
type Server struct {
	cfg      *Config
	coord    *game.Coordinator
	router   *router.Router
	clock    quartz.Clock
	logger   *log.Logger
	inflight *semaphore.Weighted
	stats    *RequestStats
	upgrader websocket.Upgrader

	mu        sync.Mutex
	listeners []boundListener
	httpLn    net.Listener
	bound     bool
	conns     map[*wsConn]struct{}
}

type boundListener struct {
	cfg ListenerConfig
	ln  net.Listener
}

func (b boundListener) category() protocol.Category {
	return protocol.Category(b.cfg.Category)
}

// New creates a server for an already validated config.
func New(cfg *Config, coord *game.Coordinator, logger *log.Logger) *Server {
	return &Server{
		cfg:   cfg,
		coord: coord,
		router: router.New(coord, router.Options{
			LoginSweep:  cfg.LoginTimeout(),
			IdleTimeout: cfg.IdleTimeout(),
		}, logger),
		clock:    quartz.NewReal(),
		logger:   logger.WithPrefix("server"),
		inflight: semaphore.NewWeighted(int64(cfg.Server.MaxInflight)),
		stats:    NewRequestStats(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  protocol.MaxFrameSize,
			WriteBufferSize: protocol.MaxFrameSize,
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// Stats returns the request counters.
func (s *Server) Stats() *RequestStats {
	return s.stats
}

// Listen binds every configured address. Run calls it if needed; call it
// first to learn the bound addresses of ":0" listeners.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return nil
	}

	for _, lc := range s.cfg.Listeners {
		ln, err := net.Listen("tcp", lc.Address)
		if err != nil {
			s.closeListenersLocked()
			return fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		s.listeners = append(s.listeners, boundListener{cfg: lc, ln: ln})
	}

	ln, err := net.Listen("tcp", s.cfg.Server.HTTPAddress)
	if err != nil {
		s.closeListenersLocked()
		return fmt.Errorf("http listener: %w", err)
	}
	s.httpLn = ln
	s.bound = true
	return nil
}

// Addr returns the bound address of the named listener, or nil.
func (s *Server) Addr(name string) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bl := range s.listeners {
		if bl.cfg.Name == name {
			return bl.ln.Addr()
		}
	}
	return nil
}

// HTTPAddr returns the bound address of the HTTP listener, or nil.
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

func (s *Server) closeListenersLocked() {
	for _, bl := range s.listeners {
		_ = bl.ln.Close() // Ignore close errors during shutdown
	}
	s.listeners = nil
	if s.httpLn != nil {
		_ = s.httpLn.Close()
		s.httpLn = nil
	}
	s.bound = false
}

// Run serves every listener, the HTTP endpoint and the presence sweeper
// until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	listeners := append([]boundListener(nil), s.listeners...)
	httpLn := s.httpLn
	s.mu.Unlock()

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, bl := range listeners {
		g.Go(func() error {
			return s.serveTCP(ctx, bl)
		})
	}
	g.Go(func() error {
		s.logger.Info("Serving HTTP", "addr", httpLn.Addr())
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.coord.RunSweeper(ctx, s.cfg.SweepInterval(), s.cfg.IdleTimeout())
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx) // Ignore shutdown errors; listeners close below

		s.mu.Lock()
		s.closeListenersLocked()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		return nil
	})

	return g.Wait()
}

// process decodes one frame, runs it through the router and returns the
// reply. An empty category means the frame names its own.
func (s *Server) process(ctx context.Context, cat protocol.Category, frame string, logger *log.Logger) string {
	start := s.clock.Now()
	logger = logger.With("req", uuid.NewString())

	if err := s.inflight.Acquire(ctx, 1); err != nil {
		logger.Warn("Dropped request during shutdown", "err", err)
		return protocol.Unavailable
	}
	defer s.inflight.Release(1)

	var (
		req protocol.Request
		err error
	)
	if cat == "" {
		req, err = protocol.Decode(frame)
	} else {
		req, err = protocol.DecodeCategory(cat, frame)
	}
	if err != nil {
		logger.Warn("Rejected frame", "err", err)
		s.stats.Record(cat.String(), OutcomeMalformed, s.clock.Since(start))
		return protocol.Fail(protocol.ReasonMalformed)
	}

	reply, err := s.router.Handle(ctx, req)
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
		logger.Error("Request failed", "category", req.Category(), "player", req.Player(), "err", err)
	case protocol.ParseReply(reply).Failed():
		outcome = OutcomeFailed
	}
	s.stats.Record(req.Category().String(), outcome, s.clock.Since(start))
	logger.Debug("Replied", "category", req.Category(), "player", req.Player(), "reply", reply)
	return reply
}

// Handler returns the HTTP routes: /ws, /health and /stats.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// StatsResponse is the body served at /stats.
type StatsResponse struct {
	Requests []CategorySnapshot `json:"requests"`
	Game     GameStats          `json:"game"`
}

// GameStats is the JSON form of game.Stats.
type GameStats struct {
	Connected       int   `json:"connected"`
	OpenRooms       int   `json:"open_rooms"`
	RoundsDealt     int64 `json:"rounds_dealt"`
	RoundsCompleted int64 `json:"rounds_completed"`
	RoundsAbandoned int64 `json:"rounds_abandoned"`
	Plays           int64 `json:"plays"`
	Evictions       int64 `json:"evictions"`
}

// Snapshot returns the current request and game counters.
func (s *Server) Snapshot() StatsResponse {
	gs := s.coord.Stats()
	return StatsResponse{
		Requests: s.stats.Snapshot(),
		Game: GameStats{
			Connected:       gs.Connected,
			OpenRooms:       gs.OpenRooms,
			RoundsDealt:     gs.RoundsDealt,
			RoundsCompleted: gs.RoundsCompleted,
			RoundsAbandoned: gs.RoundsAbandoned,
			Plays:           gs.Plays,
			Evictions:       gs.Evictions,
		},
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.logger.Error("Failed to encode stats", "err", err)
	}
}

// WriteStatsFile writes Snapshot to path atomically.
func (s *Server) WriteStatsFile(path string) error {
	if err := fileutil.WriteJSONAtomic(path, s.Snapshot(), 0o644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	s.logger.Info("Wrote stats", "path", path)
	return nil
}
