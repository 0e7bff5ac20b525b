// Package session holds runtime state of the agent and its control connection.
package session

import (
	"crypto/subtle"
	"sync"
	"time"
)

// OrientationAuto means the video orientation follows the device.
const OrientationAuto = -1

// Snapshot represents a read-only view of the current session state.
type Snapshot struct {
	Connected          bool      `json:"connected"`
	Orientation        int       `json:"orientation"`
	MaxWidth           int       `json:"maxWidth"`
	MaxHeight          int       `json:"maxHeight"`
	Streaming          bool      `json:"streaming"`
	ClipboardSync      bool      `json:"clipboardSync"`
	ClipboardMaxLength int       `json:"clipboardMaxLength"`
	LastTouch          time.Time `json:"lastTouch"`
}

// Session holds runtime state shared between the control loop and the HTTP API.
type Session struct {
	mu                 sync.RWMutex
	token              string
	connected          bool
	orientation        int
	maxWidth           int
	maxHeight          int
	streaming          bool
	clipboardSync      bool
	clipboardMaxLength int
	lastTouch          time.Time
}

// New returns an initialized session. An empty token disables authorization.
func New(token string) *Session {
	return &Session{
		token:       token,
		orientation: OrientationAuto,
	}
}

// Authorize validates a client token.
func (s *Session) Authorize(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

// TryConnect marks a control connection active. It fails when one already is.
func (s *Session) TryConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return false
	}
	s.connected = true
	return true
}

// Disconnect clears the active connection and its clipboard sync state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.clipboardSync = false
	s.clipboardMaxLength = 0
}

// Connected reports whether a control connection is active.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetOrientation records the requested video orientation.
func (s *Session) SetOrientation(orientation int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orientation = orientation
}

// Orientation returns the requested video orientation.
func (s *Session) Orientation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orientation
}

// SetMaxResolution records the video resolution cap.
func (s *Session) SetMaxResolution(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxWidth = width
	s.maxHeight = height
}

// MaxResolution returns the video resolution cap, zero when unset.
func (s *Session) MaxResolution() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxWidth, s.maxHeight
}

// SetStreaming records whether video is streaming.
func (s *Session) SetStreaming(streaming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = streaming
}

// Streaming reports whether video is streaming.
func (s *Session) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// SetClipboardSync records the clipboard sync state.
func (s *Session) SetClipboardSync(active bool, maxLength int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipboardSync = active
	s.clipboardMaxLength = maxLength
}

// RecordTouch records the time of the latest injected touch.
func (s *Session) RecordTouch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTouch = t
}

// LastTouch returns the time of the latest injected touch.
func (s *Session) LastTouch() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTouch
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Connected:          s.connected,
		Orientation:        s.orientation,
		MaxWidth:           s.maxWidth,
		MaxHeight:          s.maxHeight,
		Streaming:          s.streaming,
		ClipboardSync:      s.clipboardSync,
		ClipboardMaxLength: s.clipboardMaxLength,
		LastTouch:          s.lastTouch,
	}
}
