// Package transport accepts control channel connections over TCP and websocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// TCPServer accepts control connections on a TCP listener.
type TCPServer struct {
	admission Admission
	handler   Handler
	logger    zerolog.Logger
}

// NewTCPServer returns a server handing accepted connections to handler.
func NewTCPServer(adm Admission, handler Handler, logger zerolog.Logger) *TCPServer {
	return &TCPServer{admission: adm, handler: handler, logger: logger}
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *TCPServer) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen control %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is canceled. It closes ln on return.
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("[transport] Control listener started")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept control: %w", err)
		}
		go s.handle(ctx, conn)
	}
}

// handle serves a single TCP connection.
func (s *TCPServer) handle(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.logger.Info().Str("remote", remote).Msg("[transport] Control client connected")
	err := serve(ctx, s.admission, conn, s.handler)
	switch {
	case errors.Is(err, ErrConnectionActive):
		s.logger.Warn().Str("remote", remote).Msg("[transport] Rejected control client, connection already active")
	case err != nil:
		s.logger.Error().Err(err).Str("remote", remote).Msg("[transport] Control client failed")
	default:
		s.logger.Info().Str("remote", remote).Msg("[transport] Control client disconnected")
	}
}
