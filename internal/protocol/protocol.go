// Package protocol implements the binary control channel wire format.
package protocol

import "fmt"

// Tag identifies the type of a control message or notification on the wire.
type Tag int32

const (
	// TagMotionEvent carries a multi-pointer motion event.
	TagMotionEvent Tag = 1
	// TagKeyEvent carries a single key event.
	TagKeyEvent Tag = 2
	// TagTextInput carries UTF-16 text to type.
	TagTextInput Tag = 3
	// TagSetDeviceOrientation requests a device orientation.
	TagSetDeviceOrientation Tag = 4
	// TagSetMaxVideoResolution caps the video resolution.
	TagSetMaxVideoResolution Tag = 5
	// TagStartVideoStream resumes the video stream.
	TagStartVideoStream Tag = 6
	// TagStopVideoStream pauses the video stream.
	TagStopVideoStream Tag = 7
	// TagStartClipboardSync enables clipboard synchronization.
	TagStartClipboardSync Tag = 8
	// TagStopClipboardSync disables clipboard synchronization.
	TagStopClipboardSync Tag = 9
	// TagClipboardChanged is the device-to-host clipboard notification.
	TagClipboardChanged Tag = 10
)

// String returns a readable tag name for logs.
func (t Tag) String() string {
	switch t {
	case TagMotionEvent:
		return "MotionEvent"
	case TagKeyEvent:
		return "KeyEvent"
	case TagTextInput:
		return "TextInput"
	case TagSetDeviceOrientation:
		return "SetDeviceOrientation"
	case TagSetMaxVideoResolution:
		return "SetMaxVideoResolution"
	case TagStartVideoStream:
		return "StartVideoStream"
	case TagStopVideoStream:
		return "StopVideoStream"
	case TagStartClipboardSync:
		return "StartClipboardSync"
	case TagStopClipboardSync:
		return "StopClipboardSync"
	case TagClipboardChanged:
		return "ClipboardChanged"
	default:
		return fmt.Sprintf("Tag(%d)", int32(t))
	}
}

// KeyActionDownAndUp is a composite key action: DOWN immediately followed by UP.
const KeyActionDownAndUp int32 = 8

// Message is a decoded host-to-device control message.
type Message interface {
	Type() Tag
}

// Pointer is one pointer of a motion event as sent by the host.
type Pointer struct {
	ID   int32
	X    int32
	Y    int32
	Axes map[int32]float32
}

// MotionEvent is a batched pointer event.
type MotionEvent struct {
	DisplayID int32
	Action    int32
	Pointers  []Pointer
}

// Type implements Message.
func (MotionEvent) Type() Tag { return TagMotionEvent }

// KeyEvent is a key press, release or press+release.
type KeyEvent struct {
	Action    int32
	Keycode   int32
	MetaState int32
}

// Type implements Message.
func (KeyEvent) Type() Tag { return TagKeyEvent }

// TextInput is text to type, kept as UTF-16 code units.
type TextInput struct {
	Text []uint16
}

// Type implements Message.
func (TextInput) Type() Tag { return TagTextInput }

// SetDeviceOrientation requests a device orientation in quarter turns.
type SetDeviceOrientation struct {
	Orientation int32
}

// Type implements Message.
func (SetDeviceOrientation) Type() Tag { return TagSetDeviceOrientation }

// SetMaxVideoResolution caps the streamed video size.
type SetMaxVideoResolution struct {
	Width  int32
	Height int32
}

// Type implements Message.
func (SetMaxVideoResolution) Type() Tag { return TagSetMaxVideoResolution }

// StartVideoStream resumes video streaming.
type StartVideoStream struct{}

// Type implements Message.
func (StartVideoStream) Type() Tag { return TagStartVideoStream }

// StopVideoStream pauses video streaming.
type StopVideoStream struct{}

// Type implements Message.
func (StopVideoStream) Type() Tag { return TagStopVideoStream }

// StartClipboardSync pushes the host clipboard and enables change notifications.
type StartClipboardSync struct {
	MaxSyncedLength int32
	Text            string
}

// Type implements Message.
func (StartClipboardSync) Type() Tag { return TagStartClipboardSync }

// StopClipboardSync disables change notifications.
type StopClipboardSync struct{}

// Type implements Message.
func (StopClipboardSync) Type() Tag { return TagStopClipboardSync }

// ClipboardChanged notifies the host that the device clipboard changed.
type ClipboardChanged struct {
	Text string
}
