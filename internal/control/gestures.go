// Package control runs the control channel: message dispatch, gestures and clipboard polling.
package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/protocol"
	"github.com/rs/zerolog"
)

// MaxPointers is the number of pointers a single motion event may carry.
const MaxPointers = 32

var (
	// ErrTooManyPointers reports a motion event exceeding MaxPointers.
	ErrTooManyPointers = errors.New("too many pointers")
	// ErrNoPointers reports a motion event without pointers.
	ErrNoPointers = errors.New("motion event has no pointers")
)

// GestureState turns batched motion messages into injectable pointer events.
// It owns the gesture start time and the pointer slots reused across events.
type GestureState struct {
	slots  [MaxPointers]device.PointerCoords
	event  device.MotionEvent
	start  time.Time
	now    func() time.Time
	logger zerolog.Logger
}

// NewGestureState returns a gesture tracker with preallocated pointer slots.
func NewGestureState(logger zerolog.Logger) *GestureState {
	g := &GestureState{now: time.Now, logger: logger}
	for i := range g.slots {
		g.slots[i].Axes = make(map[int32]float32)
	}
	return g
}

// SetNowFunc overrides the clock used for event timestamps.
func (g *GestureState) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		g.now = fn
	}
}

// GestureStart returns the start time of the open gesture, zero when none is open.
func (g *GestureState) GestureStart() time.Time {
	return g.start
}

// Decompose injects msg as one or more pointer events.
// DOWN and UP carrying several pointers are split into one event per pointer.
// It reports whether the message completed a gesture with UP.
func (g *GestureState) Decompose(msg protocol.MotionEvent, display device.DisplayInfo, inject func(*device.MotionEvent) error) (bool, error) {
	n := len(msg.Pointers)
	if n == 0 {
		return false, ErrNoPointers
	}
	if n > MaxPointers {
		return false, fmt.Errorf("%w: %d > %d", ErrTooManyPointers, n, MaxPointers)
	}

	now := g.now()
	action := msg.Action
	masked := action & device.ActionMask
	ev := &g.event
	ev.DisplayID = msg.DisplayID
	ev.Action = action
	ev.EventTime = now
	down, next := g.downTime(masked, now)
	ev.DownTime = down

	removed := -1
	if masked == device.ActionPointerUp {
		removed = int(action >> device.ActionPointerIndexShift)
	}
	for i, p := range msg.Pointers {
		slot := &g.slots[i]
		slot.Reset()
		slot.ID = p.ID
		x, y := MapToDisplay(p.X, p.Y, display)
		slot.X = float32(x)
		slot.Y = float32(y)
		slot.Pressure = 1
		if i == removed {
			slot.Pressure = 0
		}
		for axis, value := range p.Axes {
			slot.Axes[axis] = value
		}
	}

	var err error
	switch {
	case masked == device.ActionDown && n > 1:
		err = g.injectDownSequence(n, inject)
	case masked == device.ActionUp && n > 1:
		err = g.injectUpSequence(n, inject)
	default:
		ev.Pointers = g.slots[:n]
		err = inject(ev)
	}
	if err != nil {
		return false, err
	}
	g.start = next
	return masked == device.ActionUp, nil
}

// downTime returns the event down time and the gesture start to keep once the event is injected.
func (g *GestureState) downTime(masked int32, now time.Time) (time.Time, time.Time) {
	switch masked {
	case device.ActionScroll, device.ActionHoverMove, device.ActionHoverEnter, device.ActionHoverExit:
		return now, g.start
	}
	start := g.start
	if masked == device.ActionDown {
		start = now
	}
	if start.IsZero() {
		g.logger.Warn().Int32("action", masked).Msg("[control] Motion event started without DOWN, treating now as gesture start")
		start = now
	}
	if masked == device.ActionUp || masked == device.ActionCancel {
		return start, time.Time{}
	}
	return start, start
}

// injectDownSequence injects DOWN for the first pointer and POINTER_DOWN for each further one.
func (g *GestureState) injectDownSequence(n int, inject func(*device.MotionEvent) error) error {
	ev := &g.event
	ev.Action = device.ActionDown
	ev.Pointers = g.slots[:1]
	if err := inject(ev); err != nil {
		return err
	}
	for i := 1; i < n; i++ {
		ev.Action = device.PointerAction(device.ActionPointerDown, i)
		ev.Pointers = g.slots[:i+1]
		if err := inject(ev); err != nil {
			return err
		}
	}
	return nil
}

// injectUpSequence lifts pointers from the last one down, ending with UP for the first pointer.
func (g *GestureState) injectUpSequence(n int, inject func(*device.MotionEvent) error) error {
	ev := &g.event
	for i := n - 1; i >= 1; i-- {
		ev.Action = device.PointerAction(device.ActionPointerUp, i)
		g.slots[i].Pressure = 0
		ev.Pointers = g.slots[:i+1]
		if err := inject(ev); err != nil {
			return err
		}
	}
	ev.Action = device.ActionUp
	ev.Pointers = g.slots[:1]
	return inject(ev)
}
