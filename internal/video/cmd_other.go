//go:build !windows

// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import "os/exec"

// configureCmd is a no-op outside Windows.
func configureCmd(*exec.Cmd) {}
