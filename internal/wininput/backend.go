// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import "errors"

// ErrUnsupported indicates WinAPI input injection is not available.
var ErrUnsupported = errors.New("wininput is only supported on Windows")

// Backend is the low-level input surface driven by Sink.
type Backend interface {
	MoveAbs(x, y int) error
	LeftDown() error
	LeftUp() error
	Wheel(delta int) error
	HWheel(delta int) error
	Key(vk uint16, up bool) error
	Unicode(unit uint16, up bool) error
}
