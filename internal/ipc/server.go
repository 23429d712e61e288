package ipc

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/winpin/winpin/internal/layout"
)

// Dispatch hands a validated command to the serialized observer path. The
// server itself never mutates shared state.
type Dispatch func(bundleID string, pos layout.Position) error

// Server accepts command connections and routes well-formed requests to the
// dispatch function. Each connection is read on its own goroutine so a slow
// or stalled client never blocks new connections.
type Server struct {
	addr     string
	dispatch Dispatch
	logger   *slog.Logger

	listener     net.Listener
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a command server listening on addr (host:port).
func NewServer(addr string, dispatch Dispatch, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Start begins listening and accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.logger.Info("command server listening", "addr", listener.Addr().String())

	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection reads exactly one request. Malformed requests drop the
// connection with no state change; no reply body is ever written.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	req, pos, err := ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.logger.Warn("malformed command dropped",
			"remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	if err := s.dispatch(req.BundleID, pos); err != nil {
		s.logger.Warn("command dispatch failed",
			"bundle_id", req.BundleID, "position", req.Position, "error", err)
	}
}

// Stop closes the listener. In-flight connections finish on their own
// goroutines.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
}
