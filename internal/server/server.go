// Package server exposes the game over WebSocket plus the operational HTTP
// surface: health and readiness probes and the Prometheus metrics endpoint.
// Every WebSocket connection gets its own game session.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/fableturn/internal/health"
	"github.com/MrWong99/fableturn/internal/observe"
	"github.com/MrWong99/fableturn/internal/pipeline"
)

// SessionFactory creates a fresh game session for one connection.
type SessionFactory func(ctx context.Context) (*pipeline.Session, error)

// inputFrame is one player message.
type inputFrame struct {
	Input string `json:"input"`
}

// outputFrame is one engine reply.
type outputFrame struct {
	Text     string `json:"text"`
	GameOver bool   `json:"game_over"`
	Outcome  string `json:"outcome,omitempty"`

	// Nudge marks unsolicited idle check-ins so clients can render them
	// differently.
	Nudge bool `json:"nudge,omitempty"`
}

// Server is the WebSocket game frontend.
type Server struct {
	addr    string
	factory SessionFactory
	log     *slog.Logger
	metrics *observe.Metrics
	health  *health.Handler

	idleFirst  time.Duration
	idleSecond time.Duration

	mu      sync.Mutex
	httpSrv *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler, including any readiness checkers.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithIdleNudges enables idle check-ins on every connection: a gentle one
// after first, a concrete suggestion after second.
func WithIdleNudges(first, second time.Duration) Option {
	return func(s *Server) {
		s.idleFirst, s.idleSecond = first, second
	}
}

// New creates a Server listening on addr once Run is called.
func New(addr string, factory SessionFactory, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		factory: factory,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s
}

// Handler returns the full HTTP handler tree, exported so tests can serve
// it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/play", s.handlePlay)
	s.health.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("game server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen on %s: %w", s.addr, err)
	}
}

// handlePlay upgrades the connection and runs the read-reply loop until the
// client disconnects or the game ends.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session aborted")

	ctx := r.Context()
	sess, err := s.factory(ctx)
	if err != nil {
		s.log.Error("session creation failed", "error", err)
		conn.Close(websocket.StatusInternalError, "could not start game")
		return
	}
	defer sess.Close()

	// Writes come from the turn loop and the idle watcher.
	var writeMu sync.Mutex
	send := func(frame outputFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return wsjson.Write(wctx, conn, frame)
	}

	if err := send(outputFrame{Text: sess.Greeting()}); err != nil {
		return
	}

	activity := make(chan struct{}, 1)
	if s.idleFirst > 0 {
		idleCtx, stopIdle := context.WithCancel(ctx)
		defer stopIdle()
		go s.watchIdle(idleCtx, sess, send, activity)
	}

	for {
		var in inputFrame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "bye")
			} else if ctx.Err() == nil {
				s.log.Debug("websocket read ended", "error", err)
			}
			return
		}
		select {
		case activity <- struct{}{}:
		default:
		}

		res := sess.HandleInput(ctx, in.Input)
		if err := send(outputFrame{Text: res.Text, GameOver: res.GameOver, Outcome: string(res.Outcome)}); err != nil {
			return
		}
		if res.GameOver {
			conn.Close(websocket.StatusNormalClosure, "game over")
			return
		}
	}
}

// watchIdle nudges a silent player twice per quiet stretch: first gently,
// then with a concrete suggestion. Any player activity restarts the clock.
func (s *Server) watchIdle(ctx context.Context, sess *pipeline.Session, send func(outputFrame) error, activity <-chan struct{}) {
	stage := 0
	timer := time.NewTimer(s.idleFirst)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-activity:
			stage = 0
			timer.Reset(s.idleFirst)
		case <-timer.C:
			if sess.Busy() || sess.Over() {
				timer.Reset(s.idleFirst)
				continue
			}
			text := sess.Nudge(ctx, stage > 0)
			if text != "" {
				if err := send(outputFrame{Text: text, Nudge: true}); err != nil {
					return
				}
			}
			if stage == 0 && s.idleSecond > s.idleFirst {
				stage = 1
				timer.Reset(s.idleSecond - s.idleFirst)
			}
		}
	}
}
