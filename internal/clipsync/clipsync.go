// Package clipsync keeps the host and device clipboards in sync over the control channel.
package clipsync

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/rs/zerolog"
)

// utf8MaxBytesPerRune is the byte length bound used for the fast length check.
const utf8MaxBytesPerRune = 4

// ErrInvalidLength reports a non-positive max synced length on start.
var ErrInvalidLength = errors.New("max synced clipboard length must be > 0")

// Notifier delivers clipboard change notifications to the host.
type Notifier interface {
	NotifyClipboardChanged(text string) error
}

// Synchronizer tracks clipboard sync state.
// All methods except OnPrimaryClipChanged must be called from the dispatch goroutine.
type Synchronizer struct {
	clipboard device.Clipboard
	notifier  Notifier
	logger    zerolog.Logger

	maxSyncedLength int
	lastText        string
	pending         atomic.Bool
}

// New returns a disabled synchronizer.
func New(clipboard device.Clipboard, notifier Notifier, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		clipboard: clipboard,
		notifier:  notifier,
		logger:    logger,
	}
}

// Start pushes text to the device clipboard and enables change notifications.
// Calling Start while active only updates the length cap.
func (s *Synchronizer) Start(text string, maxSyncedLength int) error {
	if maxSyncedLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, maxSyncedLength)
	}
	if text != s.lastText {
		s.lastText = text
		if err := s.pushText(text); err != nil {
			s.logger.Warn().Err(err).Msg("[clipsync] Failed to set device clipboard")
		}
	}
	wasStopped := s.maxSyncedLength == 0
	s.maxSyncedLength = maxSyncedLength
	if wasStopped {
		s.clipboard.AddListener(s)
		s.logger.Debug().Int("max_length", maxSyncedLength).Msg("[clipsync] Sync started")
	}
	return nil
}

// pushText writes text to the device clipboard unless it already holds it.
func (s *Synchronizer) pushText(text string) error {
	current, err := s.clipboard.Text()
	if err == nil && current == text {
		return nil
	}
	return s.clipboard.SetText(text)
}

// Stop disables change notifications. It is a no-op when already stopped.
func (s *Synchronizer) Stop() {
	if s.maxSyncedLength == 0 {
		return
	}
	s.clipboard.RemoveListener(s)
	s.maxSyncedLength = 0
	s.lastText = ""
	s.pending.Store(false)
	s.logger.Debug().Msg("[clipsync] Sync stopped")
}

// Active reports whether sync is enabled.
func (s *Synchronizer) Active() bool {
	return s.maxSyncedLength != 0
}

// MaxSyncedLength returns the current length cap, 0 when disabled.
func (s *Synchronizer) MaxSyncedLength() int {
	return s.maxSyncedLength
}

// OnPrimaryClipChanged implements device.ClipboardListener.
// It only raises the pending flag and is safe to call from any goroutine.
func (s *Synchronizer) OnPrimaryClipChanged() {
	s.pending.Store(true)
}

// ConsumePending reports whether a change was signaled and clears the flag.
func (s *Synchronizer) ConsumePending() bool {
	return s.pending.Swap(false)
}

// ProcessPendingChange reads the device clipboard and notifies the host of new text.
func (s *Synchronizer) ProcessPendingChange() {
	if s.maxSyncedLength == 0 {
		return
	}
	text, err := s.clipboard.Text()
	if err != nil {
		s.logger.Warn().Err(err).Msg("[clipsync] Unable to obtain clipboard text")
		return
	}
	if text == "" || text == s.lastText {
		return
	}
	limit := s.maxSyncedLength
	if len(text) > limit*utf8MaxBytesPerRune || utf8.RuneCountInString(text) > limit {
		s.logger.Debug().Int("bytes", len(text)).Int("max_length", limit).Msg("[clipsync] Clipboard text too long to sync")
		return
	}
	s.lastText = text
	if err := s.notifier.NotifyClipboardChanged(text); err != nil {
		s.logger.Debug().Err(err).Msg("[clipsync] Clipboard notification dropped, peer disconnected")
	}
}
