// Package device defines the device-side collaborators driven by the control channel.
package device

// InputSink injects synthesized input events into the device.
type InputSink interface {
	InjectMotion(event *MotionEvent, mode InjectMode) error
	InjectKey(event KeyEvent, mode InjectMode) error
}

// ClipboardListener receives primary clip change callbacks.
// Callbacks may arrive on any goroutine.
type ClipboardListener interface {
	OnPrimaryClipChanged()
}

// Clipboard reads and writes the device clipboard and reports changes.
type Clipboard interface {
	Text() (string, error)
	SetText(text string) error
	AddListener(l ClipboardListener)
	RemoveListener(l ClipboardListener)
}

// KeyCharacterMap translates a single UTF-16 code unit into key events.
type KeyCharacterMap interface {
	EventsFor(unit uint16) ([]KeyEvent, bool)
}

// DisplayQuery reports the current display state.
type DisplayQuery interface {
	DisplayInfo() (DisplayInfo, error)
}

// OrientationRefresh asks SetVideoOrientation to re-apply the current orientation
// against the display as it is now, keeping any orientation the host locked.
const OrientationRefresh = -1

// VideoController controls the outgoing video stream.
type VideoController interface {
	StartVideoStream() error
	StopVideoStream() error
	SetMaxVideoResolution(width, height int) error
	SetVideoOrientation(orientation int) error
}
