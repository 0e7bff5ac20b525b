// Package testutil provides fakes and frame builders shared by package tests.
package testutil

import (
	"fmt"
	"slices"
	"sync"

	"github.com/frudas24/mirroragent/internal/device"
)

// FakeClipboard implements device.Clipboard in memory.
type FakeClipboard struct {
	mu        sync.Mutex
	text      string
	listeners []device.ClipboardListener
	SetCalls  []string
	GetErr    error
}

// Ensure FakeClipboard implements the interface.
var _ device.Clipboard = (*FakeClipboard)(nil)

// NewFakeClipboard returns a clipboard holding text.
func NewFakeClipboard(text string) *FakeClipboard {
	return &FakeClipboard{text: text}
}

// Text returns the current clipboard text.
func (c *FakeClipboard) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return "", c.GetErr
	}
	return c.text, nil
}

// SetText records a write from the code under test.
func (c *FakeClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.SetCalls = append(c.SetCalls, text)
	return nil
}

// AddListener attaches a change listener.
func (c *FakeClipboard) AddListener(l device.ClipboardListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// RemoveListener detaches a change listener.
func (c *FakeClipboard) RemoveListener(l device.ClipboardListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.listeners, l); i >= 0 {
		c.listeners = slices.Delete(c.listeners, i, i+1)
	}
}

// ListenerCount returns the number of attached listeners.
func (c *FakeClipboard) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// SetExternal simulates another app changing the clipboard and fires the listeners.
func (c *FakeClipboard) SetExternal(text string) {
	c.mu.Lock()
	c.text = text
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, l := range listeners {
		l.OnPrimaryClipChanged()
	}
}

// FakeKeyMap implements device.KeyCharacterMap from a fixed table.
type FakeKeyMap map[uint16][]device.KeyEvent

// EventsFor returns the events registered for unit.
func (m FakeKeyMap) EventsFor(unit uint16) ([]device.KeyEvent, bool) {
	events, ok := m[unit]
	return events, ok
}

// FakeDisplay implements device.DisplayQuery.
type FakeDisplay struct {
	Info device.DisplayInfo
	Err  error
}

// DisplayInfo returns the configured display info.
func (d *FakeDisplay) DisplayInfo() (device.DisplayInfo, error) {
	return d.Info, d.Err
}

// FakeVideo implements device.VideoController and records calls.
type FakeVideo struct {
	mu    sync.Mutex
	Calls []string
}

// Ensure FakeVideo implements the interface.
var _ device.VideoController = (*FakeVideo)(nil)

// record appends a call description.
func (v *FakeVideo) record(call string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, call)
	return nil
}

// StartVideoStream records a start.
func (v *FakeVideo) StartVideoStream() error { return v.record("start") }

// StopVideoStream records a stop.
func (v *FakeVideo) StopVideoStream() error { return v.record("stop") }

// SetMaxVideoResolution records the resolution.
func (v *FakeVideo) SetMaxVideoResolution(width, height int) error {
	return v.record(fmt.Sprintf("resolution %dx%d", width, height))
}

// SetVideoOrientation records the orientation.
func (v *FakeVideo) SetVideoOrientation(orientation int) error {
	return v.record(fmt.Sprintf("orientation %d", orientation))
}

// CallList returns a copy of the recorded calls.
func (v *FakeVideo) CallList() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.Calls)
}

// FakeNotifier records clipboard notifications.
type FakeNotifier struct {
	mu    sync.Mutex
	Texts []string
	Err   error
}

// NotifyClipboardChanged records text.
func (n *FakeNotifier) NotifyClipboardChanged(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Texts = append(n.Texts, text)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (n *FakeNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.Texts)
}
