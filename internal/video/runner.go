// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// earlyExitWindow is how long a freshly started ffmpeg must survive before it is trusted.
const earlyExitWindow = 700 * time.Millisecond

// ArgsBuilder returns ffmpeg args for an RTP port, with or without the D3D11 grabber.
type ArgsBuilder func(port int, useD3D11 bool) []string

// process is one running ffmpeg instance.
type process struct {
	cmd  *exec.Cmd
	done chan error
}

// launch starts path with args and reaps it in the background.
func launch(path string, args []string) (*process, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	configureCmd(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	p := &process{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()
	return p, nil
}

// exitedWithin reports whether the process ended before d elapsed, with its exit error.
func (p *process) exitedWithin(d time.Duration) (bool, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-p.done:
		return true, err
	case <-timer.C:
		return false, nil
	}
}

// kill terminates the process and waits for it to be reaped.
func (p *process) kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// Runner keeps at most one ffmpeg process alive.
type Runner struct {
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	proc *process
}

// NewRunner returns a runner launching the ffmpeg binary at path.
func NewRunner(path string, logger zerolog.Logger) *Runner {
	return &Runner{path: path, logger: logger}
}

// Restart replaces the running process and returns the RTP port the new one sends to.
// The D3D11 grabber is tried first; if ffmpeg dies right away the GDI variant is started instead.
func (r *Runner) Restart(build ArgsBuilder) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stopLocked(); err != nil {
		return 0, err
	}
	if r.path == "" {
		return 0, errors.New("ffmpeg path is required")
	}
	port, err := allocatePort()
	if err != nil {
		return 0, fmt.Errorf("allocate rtp port: %w", err)
	}

	args := build(port, true)
	r.logger.Debug().Str("args", strings.Join(args, " ")).Msg("[video] Starting ffmpeg")
	proc, err := launch(r.path, args)
	if err != nil {
		return 0, err
	}
	if exited, exitErr := proc.exitedWithin(earlyExitWindow); exited {
		r.logger.Warn().Err(exitErr).Msg("[video] ffmpeg exited early, retrying with fallback grabber")
		if proc, err = launch(r.path, build(port, false)); err != nil {
			if exitErr != nil {
				return 0, fmt.Errorf("ffmpeg exited early: %w", exitErr)
			}
			return 0, err
		}
	}
	r.proc = proc
	return port, nil
}

// Stop terminates the running process, if any.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

// stopLocked kills the current process. r.mu must be held.
func (r *Runner) stopLocked() error {
	if r.proc == nil {
		return nil
	}
	if err := r.proc.kill(); err != nil {
		return fmt.Errorf("stop ffmpeg: %w", err)
	}
	r.proc = nil
	return nil
}

// allocatePort finds a free loopback UDP port.
func allocatePort() (int, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port, nil
}
