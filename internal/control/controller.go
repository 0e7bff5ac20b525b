// Package control runs the control channel: message dispatch, gestures and clipboard polling.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/frudas24/mirroragent/internal/clipsync"
	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/protocol"
	"github.com/frudas24/mirroragent/internal/session"
	"github.com/rs/zerolog"
)

// DefaultClipboardPollInterval bounds how long a clipboard change waits while no message arrives.
const DefaultClipboardPollInterval = 500 * time.Millisecond

// StreamMarker is written once when the control channel starts.
const StreamMarker byte = 'C'

// Conn is the byte stream carrying the control channel.
type Conn interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
	Close() error
}

// Deps are the device collaborators driven by the controller.
type Deps struct {
	Input     device.InputSink
	Clipboard device.Clipboard
	KeyMap    device.KeyCharacterMap
	Display   device.DisplayQuery
	Video     device.VideoController
	Session   *session.Session
}

// Options tune the controller.
type Options struct {
	ClipboardPollInterval time.Duration
	WakeOnStart           bool
	Logger                zerolog.Logger
}

// Controller reads control messages from one connection and applies them to the device.
type Controller struct {
	conn   Conn
	in     *bufio.Reader
	out    *bufio.Writer
	outMu  sync.Mutex
	deps   Deps
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	gestures  *GestureState
	clipboard *clipsync.Synchronizer
	inject    func(*device.MotionEvent) error

	tagBuf   [4]byte
	tagLen   int
	deadline bool

	closeOnce sync.Once
	closeErr  error
}

// NewController returns a controller for conn.
func NewController(conn Conn, deps Deps, opts Options) *Controller {
	if opts.ClipboardPollInterval <= 0 {
		opts.ClipboardPollInterval = DefaultClipboardPollInterval
	}
	c := &Controller{
		conn:     conn,
		in:       bufio.NewReader(conn),
		out:      bufio.NewWriter(conn),
		deps:     deps,
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		gestures: NewGestureState(opts.Logger),
	}
	c.clipboard = clipsync.New(deps.Clipboard, c, opts.Logger)
	c.inject = c.injectMotion
	return c
}

// SetNowFunc overrides the clock used for event timestamps and deadlines.
func (c *Controller) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	c.now = fn
	c.gestures.SetNowFunc(fn)
}

// Run processes messages until the stream ends, ctx is canceled or a fatal I/O error occurs.
// End of stream and cancellation return nil.
func (c *Controller) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	defer c.clipboard.Stop()

	if err := c.writeMarker(); err != nil {
		return c.exit(ctx, err)
	}
	c.logger.Info().Msg("[control] Control channel started")
	if c.opts.WakeOnStart {
		if err := c.wakeUpDevice(); err != nil {
			c.logger.Warn().Err(err).Msg("[control] Wake up failed")
		}
	}

	for {
		if err := c.armDeadline(); err != nil {
			return c.exit(ctx, err)
		}
		tag, err := c.readTag()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return c.exit(ctx, err)
		}
		if err := c.clearDeadline(); err != nil {
			return c.exit(ctx, err)
		}
		msg, err := protocol.Decode(tag, c.in)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				c.logger.Debug().Err(err).Msg("[control] Stream ended inside a message")
				return c.exit(ctx, err)
			}
			if errors.Is(err, protocol.ErrMalformedMessage) {
				c.logger.Error().Err(err).Msg("[control] Dropping malformed message")
				continue
			}
			return c.exit(ctx, err)
		}
		if err := c.Dispatch(msg); err != nil {
			c.logger.Error().Err(err).Stringer("type", msg.Type()).Msg("[control] Message failed")
		}
	}
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// NotifyClipboardChanged sends a clipboard change notification to the host.
func (c *Controller) NotifyClipboardChanged(text string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if err := protocol.EncodeNotification(c.out, protocol.ClipboardChanged{Text: text}); err != nil {
		return err
	}
	return c.out.Flush()
}

// writeMarker announces the control channel to the host.
func (c *Controller) writeMarker() error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if err := c.out.WriteByte(StreamMarker); err != nil {
		return err
	}
	return c.out.Flush()
}

// armDeadline delivers pending clipboard changes and sets the read deadline for this iteration.
// Reads block indefinitely while clipboard sync is disabled.
func (c *Controller) armDeadline() error {
	if !c.clipboard.Active() {
		return c.clearDeadline()
	}
	if c.clipboard.ConsumePending() {
		c.clipboard.ProcessPendingChange()
	}
	c.deadline = true
	return c.conn.SetReadDeadline(c.now().Add(c.opts.ClipboardPollInterval))
}

// clearDeadline removes the read deadline if one is set.
func (c *Controller) clearDeadline() error {
	if !c.deadline {
		return nil
	}
	c.deadline = false
	return c.conn.SetReadDeadline(time.Time{})
}

// readTag reads the next message tag. Bytes read before a timeout are kept for the next call.
func (c *Controller) readTag() (protocol.Tag, error) {
	for c.tagLen < len(c.tagBuf) {
		n, err := c.in.Read(c.tagBuf[c.tagLen:])
		c.tagLen += n
		if err != nil {
			if errors.Is(err, io.EOF) && c.tagLen > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
	}
	c.tagLen = 0
	return protocol.ParseTag(c.tagBuf), nil
}

// exit maps a loop-terminating error to the Run result.
func (c *Controller) exit(ctx context.Context, err error) error {
	if isEndOfStream(err) || ctx.Err() != nil {
		c.logger.Info().Msg("[control] Control channel closed")
		return nil
	}
	c.logger.Error().Err(err).Msg("[control] Control channel failed")
	return fmt.Errorf("control channel: %w", err)
}

// isTimeout reports whether err is a read deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isEndOfStream reports whether err means the peer or the agent closed the stream.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
