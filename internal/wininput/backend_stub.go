//go:build !windows

// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

// NoopBackend is a placeholder backend for non-Windows builds.
type NoopBackend struct{}

// NewBackend returns a non-functional backend on non-Windows platforms.
func NewBackend() (Backend, error) {
	return NoopBackend{}, ErrUnsupported
}

// MoveAbs returns ErrUnsupported.
func (NoopBackend) MoveAbs(int, int) error { return ErrUnsupported }

// LeftDown returns ErrUnsupported.
func (NoopBackend) LeftDown() error { return ErrUnsupported }

// LeftUp returns ErrUnsupported.
func (NoopBackend) LeftUp() error { return ErrUnsupported }

// Wheel returns ErrUnsupported.
func (NoopBackend) Wheel(int) error { return ErrUnsupported }

// HWheel returns ErrUnsupported.
func (NoopBackend) HWheel(int) error { return ErrUnsupported }

// Key returns ErrUnsupported.
func (NoopBackend) Key(uint16, bool) error { return ErrUnsupported }

// Unicode returns ErrUnsupported.
func (NoopBackend) Unicode(uint16, bool) error { return ErrUnsupported }
