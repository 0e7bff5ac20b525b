// Package transport accepts control channel connections over TCP and websocket.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// closeWriteTimeout bounds the close handshake write.
const closeWriteTimeout = time.Second

// WSConn adapts a websocket to a byte stream. Binary messages are concatenated in order.
// A pump goroutine owns the websocket reader so read deadlines do not poison the connection.
type WSConn struct {
	ws      *websocket.Conn
	chunks  chan []byte
	readErr error
	done    chan struct{}

	mu       sync.Mutex
	deadline time.Time
	pending  []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewWSConn wraps ws and starts reading from it.
func NewWSConn(ws *websocket.Conn) *WSConn {
	c := &WSConn{
		ws:     ws,
		chunks: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go c.pump()
	return c
}

// pump forwards binary messages until the websocket fails or the conn is closed.
func (c *WSConn) pump() {
	defer close(c.chunks)
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		if mt != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		select {
		case c.chunks <- data:
		case <-c.done:
			return
		}
	}
}

// Read reads buffered message bytes, waiting for the next message up to the read deadline.
func (c *WSConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		c.mu.Unlock()
		return n, nil
	}
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-c.chunks:
		if !ok {
			return 0, c.endError()
		}
		c.mu.Lock()
		n := copy(p, data)
		c.pending = data[n:]
		c.mu.Unlock()
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	case <-c.done:
		return 0, net.ErrClosed
	}
}

// endError maps the pump failure to a stream error.
func (c *WSConn) endError() error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	err := c.readErr
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// Write sends p as one binary message.
func (c *WSConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadDeadline sets the deadline for future Read calls. A zero value disables it.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

// Close sends a close frame and closes the websocket.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// WSServer upgrades HTTP requests into control connections.
type WSServer struct {
	ctx       context.Context
	upgrader  websocket.Upgrader
	admission Admission
	handler   Handler
	authorize func(*http.Request) bool
	logger    zerolog.Logger
}

// NewWSServer returns a websocket control endpoint. Handlers run with ctx.
func NewWSServer(ctx context.Context, adm Admission, handler Handler, authorize func(*http.Request) bool, logger zerolog.Logger) *WSServer {
	return &WSServer{
		ctx: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		admission: adm,
		handler:   handler,
		authorize: authorize,
		logger:    logger,
	}
}

// ServeHTTP upgrades the connection and serves the control channel on it.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.authorize != nil && !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("[transport] Websocket upgrade failed")
		return
	}
	remote := r.RemoteAddr
	s.logger.Info().Str("remote", remote).Msg("[transport] Websocket control client connected")
	err = serve(s.ctx, s.admission, NewWSConn(ws), s.handler)
	switch {
	case errors.Is(err, ErrConnectionActive):
		s.logger.Warn().Str("remote", remote).Msg("[transport] Rejected websocket control client, connection already active")
	case err != nil:
		s.logger.Error().Err(err).Str("remote", remote).Msg("[transport] Websocket control client failed")
	default:
		s.logger.Info().Str("remote", remote).Msg("[transport] Websocket control client disconnected")
	}
}
