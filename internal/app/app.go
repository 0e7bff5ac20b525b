// Package app wires the control transports, the device adapters and the HTTP surface together.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/frudas24/mirroragent/internal/config"
	"github.com/frudas24/mirroragent/internal/control"
	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/session"
	"github.com/frudas24/mirroragent/internal/transport"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the HTTP server graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Components are the device adapters driven by control connections.
type Components struct {
	Input     device.InputSink
	KeyMap    device.KeyCharacterMap
	Clipboard device.Clipboard
	Display   device.DisplayQuery
	Video     device.VideoController
	// Signaling serves /ws/signal when set.
	Signaling http.Handler
}

// App coordinates the control transports, HTTP API and background tasks.
type App struct {
	mu         sync.Mutex
	cfg        config.Config
	session    *session.Session
	comp       Components
	logger     zerolog.Logger
	background []func(ctx context.Context) error
	closers    []func() error
}

// New creates an application with its dependencies wired.
func New(cfg config.Config, sess *session.Session, comp Components, logger zerolog.Logger) (*App, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if comp.Input == nil {
		return nil, errors.New("input sink is required")
	}
	if comp.KeyMap == nil {
		return nil, errors.New("key map is required")
	}
	if comp.Clipboard == nil {
		return nil, errors.New("clipboard is required")
	}
	if comp.Display == nil {
		return nil, errors.New("display query is required")
	}
	if comp.Video == nil {
		return nil, errors.New("video controller is required")
	}
	return &App{cfg: cfg, session: sess, comp: comp, logger: logger}, nil
}

// Session returns the shared agent state.
func (a *App) Session() *session.Session {
	return a.session
}

// AddBackground registers a task run alongside the servers until ctx is done.
func (a *App) AddBackground(task func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = append(a.background, task)
}

// AddCloser registers a release function run by Close in reverse order.
func (a *App) AddCloser(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// HandleControl serves one control connection. It satisfies transport.Handler.
func (a *App) HandleControl(ctx context.Context, conn transport.Conn) error {
	c := control.NewController(conn, control.Deps{
		Input:     a.comp.Input,
		Clipboard: a.comp.Clipboard,
		KeyMap:    a.comp.KeyMap,
		Display:   a.comp.Display,
		Video:     a.comp.Video,
		Session:   a.session,
	}, control.Options{
		ClipboardPollInterval: a.cfg.ClipboardPollInterval,
		WakeOnStart:           a.cfg.WakeOnStart,
		Logger:                a.logger,
	})
	return c.Run(ctx)
}

// Run serves HTTP and the TCP control listener until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	a.mu.Lock()
	tasks := append([]func(context.Context) error(nil), a.background...)
	a.mu.Unlock()
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(ctx) })
	}

	if a.cfg.VideoAutostart {
		if err := a.comp.Video.StartVideoStream(); err != nil {
			a.logger.Warn().Err(err).Msg("[app] Video autostart failed")
		} else {
			a.session.SetStreaming(true)
		}
	}

	if a.cfg.ControlAddr != "" {
		tcp := transport.NewTCPServer(a.session, a.HandleControl, a.logger)
		g.Go(func() error { return tcp.ListenAndServe(ctx, a.cfg.ControlAddr) })
	}

	server := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.ListenAddr).Msg("[app] HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases adapters registered with AddCloser.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
