// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"fmt"
	"strings"

	"github.com/frudas24/mirroragent/internal/display"
)

// Options describes ffmpeg runtime parameters.
type Options struct {
	FFmpegPath    string
	FPS           int
	BitrateKbps   int
	CaptureDriver string
}

// CaptureConfig is the stream shape requested by the control channel.
type CaptureConfig struct {
	Monitor     display.Monitor
	MaxWidth    int
	MaxHeight   int
	Orientation int
}

// BuildArgs returns ffmpeg args capturing cfg.Monitor and streaming RTP to port.
func BuildArgs(cfg CaptureConfig, opts Options, port int, useD3D11 bool) []string {
	input := buildInputArgs(cfg.Monitor, opts, useD3D11)
	output := buildOutputArgs(opts, port, buildFilter(cfg))
	return append(input, output...)
}

// buildInputArgs builds the capture-side arguments.
func buildInputArgs(m display.Monitor, opts Options, useD3D11 bool) []string {
	grabber := "gdigrab"
	if driver := opts.CaptureDriver; driver != "" && driver != "gdigrab" {
		grabber = driver
	} else if useD3D11 {
		grabber = "d3d11grab"
	}
	return []string{
		"-f", grabber,
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-offset_x", fmt.Sprintf("%d", m.X),
		"-offset_y", fmt.Sprintf("%d", m.Y),
		"-video_size", fmt.Sprintf("%dx%d", m.W, m.H),
		"-i", "desktop",
	}
}

// buildFilter returns the scale and rotation filter chain, empty when none applies.
func buildFilter(cfg CaptureConfig) string {
	var filters []string
	maxW, maxH := cfg.MaxWidth, cfg.MaxHeight
	if cfg.Orientation%2 != 0 {
		maxW, maxH = maxH, maxW
	}
	if w, h, ok := fitWithin(cfg.Monitor.W, cfg.Monitor.H, maxW, maxH); ok {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", w, h))
	}
	switch cfg.Orientation {
	case 1:
		filters = append(filters, "transpose=1")
	case 2:
		filters = append(filters, "hflip", "vflip")
	case 3:
		filters = append(filters, "transpose=2")
	}
	return strings.Join(filters, ",")
}

// fitWithin scales w x h down to fit maxW x maxH keeping aspect and even sizes.
// It reports false when no scaling is needed or no cap is set.
func fitWithin(w, h, maxW, maxH int) (int, int, bool) {
	if maxW <= 0 || maxH <= 0 || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	if w <= maxW && h <= maxH {
		return 0, 0, false
	}
	outW, outH := maxW, h*maxW/w
	if outH > maxH {
		outW, outH = w*maxH/h, maxH
	}
	outW = max(2, outW&^1)
	outH = max(2, outH&^1)
	return outW, outH, true
}

// buildOutputArgs builds the encode/output arguments.
func buildOutputArgs(opts Options, port int, filter string) []string {
	// GOP of one second, never shorter than 15 frames.
	keyint := max(opts.FPS, 15)
	args := []string{"-an"}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-vcodec", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-profile:v", "baseline",
		"-g", fmt.Sprintf("%d", keyint),
		"-keyint_min", fmt.Sprintf("%d", keyint),
		"-bf", "0",
		"-x264-params", "scenecut=0:repeat-headers=1",
		"-pix_fmt", "yuv420p",
		"-b:v", fmt.Sprintf("%dk", opts.BitrateKbps),
		"-payload_type", "96",
		"-f", "rtp",
		fmt.Sprintf("rtp://127.0.0.1:%d?pkt_size=1200", port),
	)
	return args
}
