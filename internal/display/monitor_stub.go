//go:build !windows

// Package display describes monitor geometry and reports the controlled display state.
package display

import "fmt"

// ListMonitors returns an error on non-Windows platforms.
func ListMonitors() ([]Monitor, error) {
	return nil, fmt.Errorf("ListMonitors is only supported on Windows")
}
