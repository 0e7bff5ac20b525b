// Package app wires the control transports, the device adapters and the HTTP surface together.
package app

import (
	"context"

	"github.com/frudas24/mirroragent/internal/config"
	"github.com/frudas24/mirroragent/internal/display"
	"github.com/frudas24/mirroragent/internal/session"
	"github.com/frudas24/mirroragent/internal/video"
	"github.com/frudas24/mirroragent/internal/wininput"
	"github.com/rs/zerolog"
)

// Build creates an application backed by the system input, clipboard, display and video adapters.
// Missing platform support is logged and leaves the affected adapter inert.
func Build(cfg config.Config, logger zerolog.Logger) (*App, error) {
	sess := session.New(cfg.AuthToken)
	query := display.NewQuery(display.ListMonitors, cfg.MonitorIndex, cfg.DisplayRotation)

	backend, err := wininput.NewBackend()
	if err != nil {
		logger.Warn().Err(err).Msg("[app] Input injection unavailable")
	}
	sink := wininput.NewSink(backend, func() (int, int, error) {
		m, err := query.Monitor()
		return m.X, m.Y, err
	}, logger)

	store, err := wininput.NewSystemStore()
	if err != nil {
		logger.Warn().Err(err).Msg("[app] System clipboard unavailable, using in-memory clipboard")
	}
	clipboard := wininput.NewClipboard(store, logger)

	publisher, err := video.NewPublisher(logger)
	if err != nil {
		return nil, err
	}
	signaling := video.NewSignalingServer(publisher, viewerPolicy(cfg.ViewerPolicy), Authorizer(sess), logger)
	pipeline := video.NewFFmpegPipeline(video.NewRunner(cfg.FFmpegPath, logger), publisher, video.Options{
		FFmpegPath:    cfg.FFmpegPath,
		FPS:           cfg.FPS,
		BitrateKbps:   cfg.BitrateKbps,
		CaptureDriver: cfg.CaptureDriver,
	}, signaling.NotifyRestart)
	videoCtl := video.NewController(pipeline, query.Monitor, logger)

	a, err := New(cfg, sess, Components{
		Input:     sink,
		KeyMap:    wininput.CharMap{},
		Clipboard: clipboard,
		Display:   query,
		Video:     videoCtl,
		Signaling: signaling,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.AddBackground(func(ctx context.Context) error {
		return clipboard.Watch(ctx, cfg.ClipboardPollInterval)
	})
	a.AddCloser(func() error {
		publisher.ClosePeer()
		return nil
	})
	a.AddCloser(videoCtl.Close)
	return a, nil
}

// viewerPolicy maps the configured policy name.
func viewerPolicy(name string) video.ViewerPolicy {
	if name == "reject" {
		return video.ViewerReject
	}
	return video.ViewerReplace
}
