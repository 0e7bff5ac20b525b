// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/rs/zerolog"
)

// Motion axes carrying scroll amounts.
const (
	axisVScroll int32 = 9
	axisHScroll int32 = 10
)

// wheelDelta is one wheel notch.
const wheelDelta = 120

// ErrUnmappedKey reports a key code without a virtual key.
var ErrUnmappedKey = errors.New("unmapped key code")

// Origin returns the virtual-desktop position of the controlled display.
type Origin func() (x, y int, err error)

// Sink implements device.InputSink by driving a single mouse cursor and the keyboard.
// Only the first pointer of a motion event moves the cursor.
type Sink struct {
	mu      sync.Mutex
	backend Backend
	origin  Origin
	logger  zerolog.Logger
	down    bool
}

// Ensure Sink implements the interface.
var _ device.InputSink = (*Sink)(nil)

// NewSink returns a sink injecting through backend.
func NewSink(backend Backend, origin Origin, logger zerolog.Logger) *Sink {
	return &Sink{backend: backend, origin: origin, logger: logger}
}

// InjectMotion moves the cursor and presses, releases or scrolls according to the action.
// Injection is synchronous so mode is not used.
func (s *Sink) InjectMotion(ev *device.MotionEvent, _ device.InjectMode) error {
	if len(ev.Pointers) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := ev.Pointers[0]
	switch ev.MaskedAction() {
	case device.ActionDown:
		if err := s.moveTo(p); err != nil {
			return err
		}
		if err := s.backend.LeftDown(); err != nil {
			return err
		}
		s.down = true
	case device.ActionMove, device.ActionHoverMove, device.ActionHoverEnter:
		return s.moveTo(p)
	case device.ActionUp, device.ActionCancel:
		if err := s.moveTo(p); err != nil {
			return err
		}
		if !s.down {
			return nil
		}
		s.down = false
		return s.backend.LeftUp()
	case device.ActionScroll:
		if err := s.moveTo(p); err != nil {
			return err
		}
		return s.scroll(p)
	default:
		s.logger.Debug().Int32("action", ev.MaskedAction()).Msg("[wininput] Ignoring motion action")
	}
	return nil
}

// moveTo moves the cursor to a display position.
func (s *Sink) moveTo(p device.PointerCoords) error {
	ox, oy, err := s.origin()
	if err != nil {
		return fmt.Errorf("display origin: %w", err)
	}
	x := ox + int(math.Round(float64(p.X)))
	y := oy + int(math.Round(float64(p.Y)))
	return s.backend.MoveAbs(x, y)
}

// scroll turns scroll axes into wheel notches.
func (s *Sink) scroll(p device.PointerCoords) error {
	if v := p.Axes[axisVScroll]; v != 0 {
		if err := s.backend.Wheel(int(v * wheelDelta)); err != nil {
			return err
		}
	}
	if h := p.Axes[axisHScroll]; h != 0 {
		return s.backend.HWheel(int(h * wheelDelta))
	}
	return nil
}

// InjectKey presses or releases a key with its modifiers.
func (s *Sink) InjectKey(ev device.KeyEvent, _ device.InjectMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	up := ev.Action == device.KeyActionUp
	if unit, ok := unicodeUnit(ev.Code); ok {
		return s.backend.Unicode(unit, up)
	}
	vk, ok := virtualKey(ev.Code)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnmappedKey, ev.Code)
	}
	mods := modifierKeys(ev.MetaState)
	if !up {
		for _, m := range mods {
			if err := s.backend.Key(m, false); err != nil {
				return err
			}
		}
		return s.backend.Key(vk, false)
	}
	if err := s.backend.Key(vk, true); err != nil {
		return err
	}
	for i := len(mods) - 1; i >= 0; i-- {
		if err := s.backend.Key(mods[i], true); err != nil {
			return err
		}
	}
	return nil
}
