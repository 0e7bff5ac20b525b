// Package transport accepts control channel connections over TCP and websocket.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrConnectionActive reports a connection attempt while another control connection is active.
var ErrConnectionActive = errors.New("control connection already active")

// Conn is a bidirectional control stream with read deadlines.
type Conn interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
	Close() error
}

// Handler serves one accepted control connection until it ends.
type Handler func(ctx context.Context, conn Conn) error

// Admission limits the number of active control connections.
type Admission interface {
	TryConnect() bool
	Disconnect()
}

// serve runs handler for conn inside an admission slot.
func serve(ctx context.Context, adm Admission, conn Conn, handler Handler) error {
	if !adm.TryConnect() {
		_ = conn.Close()
		return ErrConnectionActive
	}
	defer adm.Disconnect()
	defer conn.Close()
	return handler(ctx, conn)
}
