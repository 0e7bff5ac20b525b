//go:build windows

// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureCmd hides the ffmpeg console window.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
