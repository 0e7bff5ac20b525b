// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/rs/zerolog"
)

// TextStore reads and writes clipboard text. A clipboard without text reads as empty.
type TextStore interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Clipboard implements device.Clipboard on top of a TextStore.
// The system offers no change callback here, so Watch polls for changes.
type Clipboard struct {
	store  TextStore
	logger zerolog.Logger

	mu       sync.Mutex
	lastSeen string

	listenersMu sync.Mutex
	listeners   atomic.Pointer[[]device.ClipboardListener]
}

// Ensure Clipboard implements the interface.
var _ device.Clipboard = (*Clipboard)(nil)

// NewClipboard returns a clipboard backed by store.
func NewClipboard(store TextStore, logger zerolog.Logger) *Clipboard {
	c := &Clipboard{store: store, logger: logger}
	c.listeners.Store(&[]device.ClipboardListener{})
	return c
}

// Text returns the current clipboard text.
func (c *Clipboard) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ReadText()
}

// SetText replaces the clipboard text. The write itself is not reported to listeners.
func (c *Clipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.WriteText(text); err != nil {
		return err
	}
	c.lastSeen = text
	return nil
}

// AddListener attaches a change listener.
// Changes made while no listener was attached are not reported.
func (c *Clipboard) AddListener(l device.ClipboardListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	current := *c.listeners.Load()
	if len(current) == 0 {
		c.resync()
	}
	next := append(slices.Clone(current), l)
	c.listeners.Store(&next)
}

// RemoveListener detaches a change listener.
func (c *Clipboard) RemoveListener(l device.ClipboardListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	current := *c.listeners.Load()
	i := slices.Index(current, l)
	if i < 0 {
		return
	}
	next := slices.Delete(slices.Clone(current), i, i+1)
	c.listeners.Store(&next)
}

// Watch polls the clipboard every interval and notifies listeners of changes until ctx is done.
func (c *Clipboard) Watch(ctx context.Context, interval time.Duration) error {
	c.resync()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Poll()
		}
	}
}

// Poll checks the clipboard once and notifies listeners when the text changed.
// The clipboard is not read while no listener is attached.
func (c *Clipboard) Poll() {
	if len(*c.listeners.Load()) == 0 {
		return
	}
	c.mu.Lock()
	text, err := c.store.ReadText()
	changed := err == nil && text != c.lastSeen
	if changed {
		c.lastSeen = text
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug().Err(err).Msg("[wininput] Clipboard read failed")
		return
	}
	if !changed {
		return
	}
	for _, l := range *c.listeners.Load() {
		l.OnPrimaryClipChanged()
	}
}

// resync records the current clipboard text as already seen.
func (c *Clipboard) resync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text, err := c.store.ReadText(); err == nil {
		c.lastSeen = text
	}
}

// MemoryStore is an in-process TextStore.
type MemoryStore struct {
	mu   sync.Mutex
	text string
}

// ReadText returns the stored text.
func (m *MemoryStore) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

// WriteText stores text.
func (m *MemoryStore) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}
