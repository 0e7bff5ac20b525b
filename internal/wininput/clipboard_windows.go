//go:build windows

// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

const (
	openAttempts = 5
	openBackoff  = 10 * time.Millisecond
)

// SystemStore reads and writes the Windows clipboard as CF_UNICODETEXT.
type SystemStore struct{}

// NewSystemStore returns the Windows clipboard store.
func NewSystemStore() (TextStore, error) {
	return SystemStore{}, nil
}

// ReadText returns the clipboard text, empty when the clipboard holds no text.
func (SystemStore) ReadText() (string, error) {
	if err := openClipboard(); err != nil {
		return "", err
	}
	defer win.CloseClipboard()

	if !win.IsClipboardFormatAvailable(win.CF_UNICODETEXT) {
		return "", nil
	}
	h := win.GetClipboardData(win.CF_UNICODETEXT)
	if h == 0 {
		return "", fmt.Errorf("GetClipboardData: %w", syscall.GetLastError())
	}
	p := win.GlobalLock(win.HGLOBAL(h))
	if p == nil {
		return "", fmt.Errorf("GlobalLock: %w", syscall.GetLastError())
	}
	defer win.GlobalUnlock(win.HGLOBAL(h))
	return utf16PtrToString((*uint16)(p)), nil
}

// WriteText replaces the clipboard content with text.
func (SystemStore) WriteText(text string) error {
	units, err := syscall.UTF16FromString(text)
	if err != nil {
		return err
	}
	if err := openClipboard(); err != nil {
		return err
	}
	defer win.CloseClipboard()

	if !win.EmptyClipboard() {
		return fmt.Errorf("EmptyClipboard: %w", syscall.GetLastError())
	}
	size := uintptr(len(units)) * unsafe.Sizeof(units[0])
	mem := win.GlobalAlloc(win.GMEM_MOVEABLE, size)
	if mem == 0 {
		return fmt.Errorf("GlobalAlloc: %w", syscall.GetLastError())
	}
	p := win.GlobalLock(mem)
	if p == nil {
		win.GlobalFree(mem)
		return fmt.Errorf("GlobalLock: %w", syscall.GetLastError())
	}
	win.MoveMemory(p, unsafe.Pointer(&units[0]), size)
	win.GlobalUnlock(mem)

	if win.SetClipboardData(win.CF_UNICODETEXT, win.HANDLE(mem)) == 0 {
		win.GlobalFree(mem)
		return fmt.Errorf("SetClipboardData: %w", syscall.GetLastError())
	}
	return nil
}

// openClipboard opens the clipboard, retrying while another process holds it.
func openClipboard() error {
	for i := 0; i < openAttempts; i++ {
		if win.OpenClipboard(0) {
			return nil
		}
		time.Sleep(openBackoff)
	}
	return fmt.Errorf("OpenClipboard: %w", syscall.GetLastError())
}

// utf16PtrToString converts a NUL-terminated UTF-16 buffer.
func utf16PtrToString(p *uint16) string {
	n := 0
	for ptr := unsafe.Pointer(p); *(*uint16)(ptr) != 0; n++ {
		ptr = unsafe.Add(ptr, 2)
	}
	return syscall.UTF16ToString(unsafe.Slice(p, n))
}
