// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"fmt"
	"sync"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/display"
	"github.com/rs/zerolog"
)

// orientationAuto is the orientation before the host locks one. It captures unrotated.
const orientationAuto = -1

// Pipeline runs the capture and encode process for a stream shape.
type Pipeline interface {
	Restart(cfg CaptureConfig) error
	Stop() error
}

// MonitorSource returns the monitor to capture.
type MonitorSource func() (display.Monitor, error)

// Controller implements device.VideoController by restarting the pipeline on shape changes.
type Controller struct {
	mu          sync.Mutex
	pipeline    Pipeline
	monitor     MonitorSource
	logger      zerolog.Logger
	streaming   bool
	running     bool
	maxWidth    int
	maxHeight   int
	orientation int
	captured    display.Monitor
}

// Ensure Controller implements the interface.
var _ device.VideoController = (*Controller)(nil)

// NewController returns a stopped controller.
func NewController(pipeline Pipeline, monitor MonitorSource, logger zerolog.Logger) *Controller {
	return &Controller{
		pipeline:    pipeline,
		monitor:     monitor,
		logger:      logger,
		orientation: orientationAuto,
	}
}

// StartVideoStream starts streaming with the current shape.
func (c *Controller) StartVideoStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = true
	return c.restartLocked("start")
}

// StopVideoStream stops the pipeline. The shape is kept for the next start.
func (c *Controller) StopVideoStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = false
	if !c.running {
		return nil
	}
	c.running = false
	c.logger.Info().Msg("[video] Stream stopped")
	return c.pipeline.Stop()
}

// SetMaxVideoResolution caps the stream size and restarts a running stream when it changed.
func (c *Controller) SetMaxVideoResolution(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.maxWidth && height == c.maxHeight {
		return nil
	}
	c.maxWidth, c.maxHeight = width, height
	return c.applyLocked("resolution")
}

// SetVideoOrientation locks the stream orientation. A negative value keeps the current lock
// and only refreshes the capture: a running stream restarts when the monitor geometry changed.
func (c *Controller) SetVideoOrientation(orientation int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if orientation <= device.OrientationRefresh {
		return c.refreshLocked()
	}
	if orientation == c.orientation {
		return nil
	}
	c.orientation = orientation
	return c.applyLocked("orientation")
}

// Orientation returns the locked orientation, orientationAuto when none was set.
func (c *Controller) Orientation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

// Streaming reports whether the stream is requested.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Close stops the pipeline.
func (c *Controller) Close() error {
	return c.StopVideoStream()
}

// refreshLocked restarts a running pipeline whose monitor moved or resized.
func (c *Controller) refreshLocked() error {
	if !c.running {
		return nil
	}
	m, err := c.monitor()
	if err != nil {
		return fmt.Errorf("capture monitor: %w", err)
	}
	if m == c.captured {
		return nil
	}
	return c.restartLocked("display changed")
}

// applyLocked restarts the pipeline if streaming.
func (c *Controller) applyLocked(reason string) error {
	if !c.streaming {
		return nil
	}
	return c.restartLocked(reason)
}

// restartLocked restarts the pipeline with the current shape.
func (c *Controller) restartLocked(reason string) error {
	m, err := c.monitor()
	if err != nil {
		return fmt.Errorf("capture monitor: %w", err)
	}
	cfg := CaptureConfig{
		Monitor:     m,
		MaxWidth:    c.maxWidth,
		MaxHeight:   c.maxHeight,
		Orientation: max(c.orientation, 0),
	}
	if err := c.pipeline.Restart(cfg); err != nil {
		c.running = false
		return fmt.Errorf("restart pipeline (%s): %w", reason, err)
	}
	c.running = true
	c.captured = m
	c.logger.Info().Str("reason", reason).Int("max_width", c.maxWidth).Int("max_height", c.maxHeight).Int("orientation", c.orientation).Msg("[video] Pipeline restarted")
	return nil
}

// FFmpegPipeline captures with ffmpeg and forwards RTP into the publisher.
type FFmpegPipeline struct {
	runner    *Runner
	publisher *Publisher
	opts      Options
	onRestart func()
}

// NewFFmpegPipeline returns a pipeline. onRestart runs after every successful restart.
func NewFFmpegPipeline(runner *Runner, publisher *Publisher, opts Options, onRestart func()) *FFmpegPipeline {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.BitrateKbps <= 0 {
		opts.BitrateKbps = 6000
	}
	return &FFmpegPipeline{runner: runner, publisher: publisher, opts: opts, onRestart: onRestart}
}

// Restart restarts ffmpeg for cfg and rebinds RTP forwarding.
func (p *FFmpegPipeline) Restart(cfg CaptureConfig) error {
	p.publisher.Detach()
	port, err := p.runner.Restart(func(port int, useD3D11 bool) []string {
		return BuildArgs(cfg, p.opts, port, useD3D11)
	})
	if err != nil {
		return err
	}
	if err := p.publisher.Attach(port); err != nil {
		return err
	}
	if p.onRestart != nil {
		p.onRestart()
	}
	return nil
}

// Stop stops ffmpeg and RTP forwarding.
func (p *FFmpegPipeline) Stop() error {
	p.publisher.Detach()
	return p.runner.Stop()
}
