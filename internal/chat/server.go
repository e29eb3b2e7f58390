package chat

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

type Server struct {
	addr     string
	logger   *slog.Logger
	reg      *Registry
	handler  *Handler
	listener net.Listener

	maxSessions int
	slots       chan struct{}

	mu       sync.Mutex // guards listener and the start/stop transition
	stopOnce sync.Once
	stopping chan struct{}
	done     chan struct{}
}

type Option func(*Server)

// WithMaxSessions caps concurrently handled connections. n <= 0 means no cap.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		s.maxSessions = n
	}
}

// WithIdleTimeout closes a session that sends nothing for d. d <= 0 disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.handler.idleTimeout = d
	}
}

// WithWriteTimeout bounds each per-recipient write. d <= 0 disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.handler.writeTimeout = d
	}
}

func NewServer(addr string, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry()
	s := &Server{
		addr:     addr,
		logger:   logger,
		reg:      reg,
		handler:  NewHandler(reg, NewDispatcher(reg), logger),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.maxSessions > 0 {
		s.slots = make(chan struct{}, s.maxSessions)
	}
	return s
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopping:
		return ErrServerClosed
	default:
	}
	if s.listener != nil {
		return ErrServerStarted
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String(), "max_sessions", s.maxSessions)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done is closed once the accept loop has exited, or by Stop if the server
// was never started.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stop closes the listener. Sessions already running are left to drain as
// their connections close.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("shutting down")

		s.mu.Lock()
		close(s.stopping)
		ln := s.listener
		s.mu.Unlock()

		if ln == nil {
			close(s.done)
		} else {
			_ = ln.Close()
			<-s.done
		}
		s.logger.Info("shutdown complete", "sessions", s.reg.Len())
	})
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer close(s.done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
			default:
				if !errors.Is(err, net.ErrClosed) {
					s.logger.Error("accept failed", "error", err)
				}
			}
			return
		}

		if !s.acquire() {
			RejectedConnections.Inc()
			s.logger.Warn("session cap reached, rejecting", "addr", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String())
		go func() {
			defer s.release()
			s.handler.HandleSession(conn)
		}()
	}
}

func (s *Server) acquire() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}
