// Package device defines the device-side collaborators driven by the control channel.
package device

import "time"

// Motion event actions, matching the Android MotionEvent encoding.
const (
	ActionDown        int32 = 0
	ActionUp          int32 = 1
	ActionMove        int32 = 2
	ActionCancel      int32 = 3
	ActionOutside     int32 = 4
	ActionPointerDown int32 = 5
	ActionPointerUp   int32 = 6
	ActionHoverMove   int32 = 7
	ActionScroll      int32 = 8
	ActionHoverEnter  int32 = 9
	ActionHoverExit   int32 = 10

	// ActionMask extracts the action from an encoded action value.
	ActionMask int32 = 0xff
	// ActionPointerIndexShift positions the pointer index inside an encoded action.
	ActionPointerIndexShift = 8
)

// Key event actions.
const (
	KeyActionDown int32 = 0
	KeyActionUp   int32 = 1
)

// KeycodeWakeup wakes the device without toggling the screen off.
const KeycodeWakeup int32 = 224

// SourceVirtualKeyboard is the device id used for synthesized key events.
const SourceVirtualKeyboard int32 = -1

// InjectMode controls whether injection waits for the event to be dispatched.
type InjectMode int

const (
	// InjectNoSync returns as soon as the event is queued.
	InjectNoSync InjectMode = iota
	// InjectWaitForResult blocks until the event has been dispatched.
	InjectWaitForResult
)

// PointerCoords is one reusable pointer slot of an injected motion event.
type PointerCoords struct {
	ID       int32
	X        float32
	Y        float32
	Pressure float32
	Axes     map[int32]float32
}

// Reset clears the slot so values from a previous event are not reused.
func (p *PointerCoords) Reset() {
	p.ID = 0
	p.X = 0
	p.Y = 0
	p.Pressure = 0
	for k := range p.Axes {
		delete(p.Axes, k)
	}
}

// MotionEvent is a synthesized pointer event handed to an InputSink.
// Pointers aliases reusable storage and is only valid for the duration of the call.
type MotionEvent struct {
	DisplayID int32
	Action    int32
	DownTime  time.Time
	EventTime time.Time
	Pointers  []PointerCoords
}

// MaskedAction returns the action without the pointer index bits.
func (e *MotionEvent) MaskedAction() int32 {
	return e.Action & ActionMask
}

// ActionIndex returns the 0-based pointer index encoded in the action.
func (e *MotionEvent) ActionIndex() int {
	return int(e.Action >> ActionPointerIndexShift)
}

// PointerAction encodes an indexed POINTER_DOWN or POINTER_UP action.
func PointerAction(action int32, index int) int32 {
	return action | int32(index)<<ActionPointerIndexShift
}

// KeyEvent is a synthesized key event handed to an InputSink.
type KeyEvent struct {
	Action    int32
	Code      int32
	MetaState int32
	DeviceID  int32
	DownTime  time.Time
	EventTime time.Time
}

// DisplayInfo describes the current display rotation and its natural (rotation 0) size.
type DisplayInfo struct {
	Rotation      int
	NaturalWidth  int32
	NaturalHeight int32
}
