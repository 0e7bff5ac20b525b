//go:build !windows

// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

// NewSystemStore returns an in-process clipboard on non-Windows platforms.
func NewSystemStore() (TextStore, error) {
	return &MemoryStore{}, ErrUnsupported
}
