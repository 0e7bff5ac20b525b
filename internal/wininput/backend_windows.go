//go:build windows

// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// WinBackend injects mouse and keyboard input using SendInput.
type WinBackend struct{}

// NewBackend returns a Windows input backend.
func NewBackend() (Backend, error) {
	return WinBackend{}, nil
}

// MoveAbs moves the cursor to an absolute virtual-desktop coordinate.
func (WinBackend) MoveAbs(x, y int) error {
	dx, dy := mapAbsolute(x, y)
	flags := uint32(win.MOUSEEVENTF_MOVE | win.MOUSEEVENTF_ABSOLUTE | win.MOUSEEVENTF_VIRTUALDESK)
	if err := sendMouseInput(flags, dx, dy, 0); err != nil {
		if win.SetCursorPos(int32(x), int32(y)) {
			return nil
		}
		return err
	}
	return nil
}

// LeftDown presses the left mouse button.
func (WinBackend) LeftDown() error {
	return sendMouseInput(win.MOUSEEVENTF_LEFTDOWN, 0, 0, 0)
}

// LeftUp releases the left mouse button.
func (WinBackend) LeftUp() error {
	return sendMouseInput(win.MOUSEEVENTF_LEFTUP, 0, 0, 0)
}

// Wheel scrolls vertically by delta.
func (WinBackend) Wheel(delta int) error {
	return sendMouseInput(win.MOUSEEVENTF_WHEEL, 0, 0, uint32(int32(delta)))
}

// HWheel scrolls horizontally by delta.
func (WinBackend) HWheel(delta int) error {
	return sendMouseInput(win.MOUSEEVENTF_HWHEEL, 0, 0, uint32(int32(delta)))
}

// Key presses or releases a virtual key.
func (WinBackend) Key(vk uint16, up bool) error {
	key := win.KEYBDINPUT{WVk: vk}
	if up {
		key.DwFlags = win.KEYEVENTF_KEYUP
	}
	return sendKeyboardInput(key)
}

// Unicode presses or releases a UTF-16 code unit.
func (WinBackend) Unicode(unit uint16, up bool) error {
	key := win.KEYBDINPUT{WScan: unit, DwFlags: win.KEYEVENTF_UNICODE}
	if up {
		key.DwFlags |= win.KEYEVENTF_KEYUP
	}
	return sendKeyboardInput(key)
}

// sendMouseInput dispatches a single mouse input event.
func sendMouseInput(flags uint32, dx, dy int32, data uint32) error {
	input := win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi: win.MOUSEINPUT{
			Dx:        dx,
			Dy:        dy,
			MouseData: data,
			DwFlags:   flags,
		},
	}
	if win.SendInput(1, unsafe.Pointer(&input), int32(unsafe.Sizeof(input))) != 1 {
		return fmt.Errorf("SendInput mouse: %w", syscall.GetLastError())
	}
	return nil
}

// sendKeyboardInput dispatches a single keyboard input event.
func sendKeyboardInput(key win.KEYBDINPUT) error {
	input := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki:   key,
	}
	if win.SendInput(1, unsafe.Pointer(&input), int32(unsafe.Sizeof(input))) != 1 {
		return fmt.Errorf("SendInput keyboard: %w", syscall.GetLastError())
	}
	return nil
}

// mapAbsolute converts screen coordinates to the WinAPI absolute range.
func mapAbsolute(x, y int) (int32, int32) {
	vx := win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)
	vy := win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)
	vw := win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)
	vh := win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)
	if vw <= 1 {
		vw = 2
	}
	if vh <= 1 {
		vh = 2
	}
	dx := (int64(x) - int64(vx)) * 65535 / int64(vw-1)
	dy := (int64(y) - int64(vy)) * 65535 / int64(vh-1)
	return int32(dx), int32(dy)
}
