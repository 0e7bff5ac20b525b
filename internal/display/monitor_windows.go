//go:build windows

// Package display describes monitor geometry and reports the controlled display state.
package display

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// ListMonitors enumerates attached displays, numbering them from 1 in enumeration order.
func ListMonitors() ([]Monitor, error) {
	var list []Monitor
	callback := syscall.NewCallback(func(hMonitor win.HMONITOR, _ win.HDC, _ *win.RECT, _ uintptr) uintptr {
		var info win.MONITORINFO
		info.CbSize = uint32(unsafe.Sizeof(info))
		if !win.GetMonitorInfo(hMonitor, &info) {
			return 1
		}
		bounds := info.RcMonitor
		list = append(list, Monitor{
			Index:   len(list) + 1,
			X:       int(bounds.Left),
			Y:       int(bounds.Top),
			W:       int(bounds.Right - bounds.Left),
			H:       int(bounds.Bottom - bounds.Top),
			Primary: info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
		})
		return 1
	})

	if ok := win.EnumDisplayMonitors(0, nil, callback, 0); !ok {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %w", syscall.GetLastError())
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no monitors detected")
	}
	return list, nil
}
